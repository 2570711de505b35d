package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
)

var (
	errOtherLogsource = errors.New("rule targets another logsource")
	errUnsupported    = errors.New("rule needs more than one incident")
)

func isDatasourceErr(err error) bool  { return errors.Is(err, errOtherLogsource) }
func isUnsupportedErr(err error) bool { return errors.Is(err, errUnsupported) }

// ruleFiles lists the .yml/.yaml files under path in lexical order.
func ruleFiles(path string) ([]string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat rule path: %w", err)
	}
	if !info.IsDir() {
		if !hasYAMLExt(root) {
			return nil, fmt.Errorf("rule file must end with .yml or .yaml: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && hasYAMLExt(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rule directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func hasYAMLExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// loadRule parses one rule file and rejects rules the engine cannot run.
func loadRule(path string) (sigma.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sigma.Rule{}, fmt.Errorf("read sigma rule %s: %w", path, err)
	}
	rule, err := sigma.ParseRule(raw)
	if err != nil {
		return sigma.Rule{}, fmt.Errorf("parse sigma rule %s: %w", path, err)
	}
	if !matchesIncidentLogsource(rule.Logsource) {
		return sigma.Rule{}, fmt.Errorf("%s: %w", path, errOtherLogsource)
	}
	if reason := unsupportedFeature(rule.Detection); reason != "" {
		return sigma.Rule{}, fmt.Errorf("%s: %s: %w", path, reason, errUnsupported)
	}
	return rule, nil
}

// unsupportedFeature names the first detection feature that spans several
// events, or returns "".
func unsupportedFeature(d sigma.Detection) string {
	if d.Timeframe > 0 {
		return "timeframe"
	}
	for _, cond := range d.Conditions {
		if cond.Aggregation != nil {
			return "aggregation"
		}
		if !plainExpr(cond.Search) {
			return "condition expression"
		}
	}
	for _, search := range d.Searches {
		if len(search.Keywords) > 0 {
			return "keyword search"
		}
		if len(search.EventMatchers) == 0 {
			return "empty search"
		}
	}
	return ""
}

// plainExpr accepts identifiers combined with and/or/not.
func plainExpr(expr sigma.SearchExpr) bool {
	var children []sigma.SearchExpr
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.Not:
		return plainExpr(e.Expr)
	case sigma.And:
		children = e
	case sigma.Or:
		children = e
	default:
		return false
	}
	for _, child := range children {
		if !plainExpr(child) {
			return false
		}
	}
	return true
}
