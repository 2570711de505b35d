package models

import "time"

// AlertCounts summarizes the incidents behind an alert.
type AlertCounts struct {
	Incidents   int `json:"incidents"`
	AttackTypes int `json:"attack_types"`
	Critical    int `json:"critical"`
	High        int `json:"high"`
}

// Alert is raised when incidents from one source IP add up within a window.
type Alert struct {
	AlertID     string              `json:"alert_id"`
	SourceIP    string              `json:"source_ip"`
	Score       int                 `json:"score"`
	WindowStart time.Time           `json:"window_start"`
	WindowEnd   time.Time           `json:"window_end"`
	AttackTypes []AttackType        `json:"attack_types"`
	Techniques  []string            `json:"techniques,omitempty"`
	Counts      AlertCounts         `json:"counts"`
	Evidence    []*EnrichedIncident `json:"evidence,omitempty"`
}
