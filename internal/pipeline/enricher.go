package pipeline

import (
	"time"

	"socsim/internal/categorize"
	"socsim/internal/metrics"
	"socsim/internal/rules"
	"socsim/internal/threat"
	"socsim/pkg/models"
)

// Enricher attaches the threat assessment, classification and rule tags.
type Enricher struct {
	engine  rules.Engine
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEnricher creates an enricher. A nil engine disables rule tagging.
func NewEnricher(engine rules.Engine, m *metrics.Metrics) *Enricher {
	if engine == nil {
		engine = &rules.NoopEngine{}
	}
	return &Enricher{engine: engine, metrics: m, now: time.Now}
}

// Enrich scores and classifies one incident.
func (e *Enricher) Enrich(inc *models.Incident) *models.EnrichedIncident {
	if inc == nil {
		return nil
	}
	assessment := threat.Score(inc)
	e.metrics.ObserveScore(assessment.Score)
	return &models.EnrichedIncident{
		Incident:       inc,
		Threat:         assessment,
		Classification: categorize.Incident(inc),
		Tags:           e.engine.Apply(inc),
		EnrichedAt:     e.now().UTC(),
	}
}
