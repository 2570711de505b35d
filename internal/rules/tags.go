package rules

import (
	"regexp"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"

	"socsim/pkg/models"
)

var techniqueID = regexp.MustCompile(`^t\d{4}(?:\.\d{3})?$`)

func tagForRule(rule sigma.Rule) models.RuleTag {
	title := strings.TrimSpace(rule.Title)
	tag := models.RuleTag{
		ID:       strings.TrimSpace(rule.ID),
		Name:     title,
		Severity: strings.ToLower(strings.TrimSpace(rule.Level)),
	}
	if tag.ID == "" {
		tag.ID = title
	}
	if tag.Severity == "" {
		tag.Severity = "medium"
	}
	tag.Tactic, tag.Technique = attackTags(rule.Tags)
	return tag
}

// attackTags picks the first ATT&CK tactic and technique from attack.* tags.
// Techniques come back upper-cased (T1566.002), tactics hyphenated.
func attackTags(tags []string) (tactic, technique string) {
	for _, raw := range tags {
		name, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(raw)), "attack.")
		if !ok {
			continue
		}
		switch {
		case techniqueID.MatchString(name):
			if technique == "" {
				technique = strings.ToUpper(name)
			}
		case strings.HasPrefix(name, "t"), strings.HasPrefix(name, "g"), strings.HasPrefix(name, "s"):
			// group/software ids and malformed technique ids
		default:
			if tactic == "" {
				tactic = strings.ReplaceAll(name, "_", "-")
			}
		}
	}
	return tactic, technique
}
