package rules

import (
	"context"
	"fmt"

	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"socsim/pkg/models"
)

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

func (s *SigmaLoadStats) skip(err error) {
	switch {
	case isDatasourceErr(err):
		s.SkippedDatasource++
	case isUnsupportedErr(err):
		s.SkippedComplex++
	default:
		s.SkippedInvalid++
	}
}

type incidentRule struct {
	eval *sigmaevaluator.RuleEvaluator
	tag  models.RuleTag
}

// SigmaEngine evaluates Sigma rules against individual incidents.
type SigmaEngine struct {
	rules []incidentRule
}

// NewSigmaEngine loads Sigma rules from a file or directory. Rules for
// another logsource, or using features a single incident cannot satisfy,
// are skipped and counted in stats.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalFiles = len(files)

	engine := &SigmaEngine{rules: make([]incidentRule, 0, len(files))}
	for _, file := range files {
		rule, err := loadRule(file)
		if err != nil {
			stats.skip(err)
			continue
		}
		engine.rules = append(engine.rules, incidentRule{
			eval: sigmaevaluator.ForRule(rule),
			tag:  tagForRule(rule),
		})
		stats.Loaded++
	}
	return engine, stats, nil
}

// Apply returns the tags of every rule the incident matches.
func (e *SigmaEngine) Apply(inc *models.Incident) []models.RuleTag {
	if e == nil || inc == nil || len(e.rules) == 0 {
		return nil
	}

	event := incidentEvent(inc)
	var tags []models.RuleTag
	for _, r := range e.rules {
		res, err := r.eval.Matches(context.Background(), event)
		if err != nil || !res.Match {
			continue
		}
		tags = append(tags, r.tag)
	}
	return tags
}

// Len reports the number of compiled rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// String summarizes the load for startup logs.
func (s SigmaLoadStats) String() string {
	return fmt.Sprintf("loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		s.Loaded, s.SkippedComplex, s.SkippedDatasource, s.SkippedInvalid, s.TotalFiles)
}
