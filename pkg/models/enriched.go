package models

import "time"

// ThreatAssessment is the weighted 0-100 risk score of one incident.
type ThreatAssessment struct {
	Score    int      `json:"score"`
	Severity Severity `json:"severity"`
	Factors  []string `json:"factors"`
}

// MitreAttack identifies an ATT&CK technique.
type MitreAttack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Classification holds categories, ATT&CK mapping and mitigation steps.
type Classification struct {
	Categories  []string    `json:"categories"`
	MitreAttack MitreAttack `json:"mitreAttack"`
	Mitigation  []string    `json:"mitigation"`
}

// RuleTag represents a detection rule match annotation.
type RuleTag struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
}

// EnrichedIncident is an incident plus everything the pipeline derived from it.
type EnrichedIncident struct {
	Incident       *Incident        `json:"incident"`
	Threat         ThreatAssessment `json:"threat"`
	Classification Classification   `json:"classification"`
	Tags           []RuleTag        `json:"tags,omitempty"`
	StoreID        string           `json:"storeId,omitempty"`
	EnrichedAt     time.Time        `json:"enrichedAt"`
	// ResolvedAt is set the first time the incident moves to Resolved or Closed.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// StreamStats is derived on demand from the scheduler's counters.
type StreamStats struct {
	TotalEventsGenerated   int64   `json:"totalEventsGenerated"`
	CurrentPattern         string  `json:"currentPattern"`
	PatternDescription     string  `json:"patternDescription"`
	AverageEventsPerMinute float64 `json:"averageEventsPerMinute"`
	UptimeSeconds          int64   `json:"uptimeSeconds"`
	IsRunning              bool    `json:"isRunning"`
}
