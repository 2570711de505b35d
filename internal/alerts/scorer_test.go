package alerts

import (
	"testing"
	"time"

	"socsim/pkg/models"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func enriched(ip string, kind models.AttackType, sev models.Severity, at time.Time) *models.EnrichedIncident {
	return &models.EnrichedIncident{
		Incident: &models.Incident{IncidentID: "INC-1", AttackType: kind, Severity: sev, SourceIP: ip, Timestamp: at},
		Threat:   models.ThreatAssessment{Severity: sev},
	}
}

func newTestScorer() *Scorer {
	s := NewScorer(Config{Window: 5 * time.Minute, Threshold: 8, Cooldown: 2 * time.Minute})
	s.now = func() time.Time { return base.Add(time.Minute) }
	return s
}

func TestSingleCriticalRaisesAlert(t *testing.T) {
	s := newTestScorer()
	out := s.Add([]*models.EnrichedIncident{enriched("10.0.0.50", models.AttackMalware, models.SeverityCritical, base)})
	if len(out) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(out))
	}
	if out[0].Score != 9 || out[0].SourceIP != "10.0.0.50" || out[0].Counts.Critical != 1 {
		t.Fatalf("unexpected alert %+v", out[0])
	}
}

func TestScoresAccumulatePerSource(t *testing.T) {
	s := newTestScorer()
	out := s.Add([]*models.EnrichedIncident{
		enriched("1.1.1.1", models.AttackDDoS, models.SeverityMedium, base),
		enriched("2.2.2.2", models.AttackDDoS, models.SeverityMedium, base),
	})
	if len(out) != 0 {
		t.Fatalf("expected no alert for isolated medium incidents, got %d", len(out))
	}

	// 3 + 3 + 2*2 types = 10.
	out = s.Add([]*models.EnrichedIncident{enriched("1.1.1.1", models.AttackXSS, models.SeverityMedium, base.Add(30*time.Second))})
	if len(out) != 1 || out[0].Counts.Incidents != 2 || out[0].Counts.AttackTypes != 2 {
		t.Fatalf("expected correlated alert, got %+v", out)
	}
	if out[0].AttackTypes[0] != models.AttackDDoS || out[0].AttackTypes[1] != models.AttackXSS {
		t.Fatalf("unexpected attack types %v", out[0].AttackTypes)
	}
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	s := newTestScorer()
	first := s.Add([]*models.EnrichedIncident{enriched("3.3.3.3", models.AttackSQLInjection, models.SeverityCritical, base)})
	second := s.Add([]*models.EnrichedIncident{enriched("3.3.3.3", models.AttackSQLInjection, models.SeverityCritical, base.Add(time.Minute))})
	third := s.Add([]*models.EnrichedIncident{enriched("3.3.3.3", models.AttackSQLInjection, models.SeverityCritical, base.Add(3*time.Minute))})
	if len(first) != 1 || len(second) != 0 || len(third) != 1 {
		t.Fatalf("unexpected cooldown behaviour: %d %d %d", len(first), len(second), len(third))
	}
}

func TestWindowPrunesOldIncidents(t *testing.T) {
	s := newTestScorer()
	s.Add([]*models.EnrichedIncident{enriched("4.4.4.4", models.AttackDDoS, models.SeverityMedium, base)})
	out := s.Add([]*models.EnrichedIncident{enriched("4.4.4.4", models.AttackXSS, models.SeverityMedium, base.Add(10*time.Minute))})
	if len(out) != 0 {
		t.Fatalf("expected expired incident to be pruned, got %+v", out)
	}
}
