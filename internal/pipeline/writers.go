package pipeline

import "socsim/pkg/models"

// IncidentWriter writes enriched incidents to a sink.
type IncidentWriter interface {
	WriteIncidents(rows []*models.EnrichedIncident) error
	Close() error
}

// AlertWriter writes alert outputs.
type AlertWriter interface {
	WriteAlerts(alerts []*models.Alert) error
	Close() error
}
