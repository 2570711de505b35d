package rules

import "socsim/pkg/models"

// Engine applies detection rules to incidents.
type Engine interface {
	Apply(inc *models.Incident) []models.RuleTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(inc *models.Incident) []models.RuleTag {
	return nil
}
