package store

import (
	"context"
	"errors"
	"time"

	"socsim/pkg/models"
)

// ErrNotFound is returned when an incident id is not in the store.
var ErrNotFound = errors.New("incident not found")

// Store keeps recently enriched incidents for lookups and reports.
type Store interface {
	// Save persists the incident and returns its opaque store id.
	Save(ctx context.Context, inc *models.EnrichedIncident) (string, error)
	// Get looks an incident up by its INC- id.
	Get(ctx context.Context, incidentID string) (*models.EnrichedIncident, error)
	// Recent returns up to limit incidents, newest first.
	Recent(ctx context.Context, limit int) ([]*models.EnrichedIncident, error)
	// Related returns incidents sharing the source IP or attack type, newest first.
	Related(ctx context.Context, inc *models.Incident, limit int) ([]*models.EnrichedIncident, error)
	// Query returns one page of incidents matching the filter, newest first.
	Query(ctx context.Context, f Filter) (*Page, error)
	// Summary aggregates every stored incident; now anchors the 24h window.
	Summary(ctx context.Context, now time.Time) (*Summary, error)
	// UpdateStatus moves an incident to another lifecycle state.
	UpdateStatus(ctx context.Context, incidentID, status string, now time.Time) (*models.EnrichedIncident, error)
	Close() error
}

func isRelated(candidate *models.EnrichedIncident, inc *models.Incident) bool {
	if candidate == nil || candidate.Incident == nil {
		return false
	}
	c := candidate.Incident
	if c.IncidentID == inc.IncidentID {
		return false
	}
	if inc.SourceIP != "" && c.SourceIP == inc.SourceIP {
		return true
	}
	return c.AttackType == inc.AttackType
}
