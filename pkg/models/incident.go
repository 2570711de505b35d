package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AttackType is the closed set of simulated attack categories.
type AttackType string

const (
	AttackDDoS         AttackType = "DDoS"
	AttackPhishing     AttackType = "Phishing"
	AttackMalware      AttackType = "Malware"
	AttackSQLInjection AttackType = "SQLInjection"
	AttackXSS          AttackType = "XSS"
)

// ErrUnknownAttackType is returned when decoding an incident with an attack type outside the closed set.
var ErrUnknownAttackType = errors.New("unknown attack type")

// AttackTypes returns all attack types in selector order.
func AttackTypes() []AttackType {
	return []AttackType{AttackDDoS, AttackPhishing, AttackMalware, AttackSQLInjection, AttackXSS}
}

// ParseAttackType validates a wire name.
func ParseAttackType(s string) (AttackType, error) {
	for _, t := range AttackTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAttackType, s)
}

// Severity is the four-level incident severity.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Rank orders severities from 1 (Low) to 4 (Critical); unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Incident statuses. Every generated incident starts Open.
const (
	StatusOpen          = "Open"
	StatusInvestigating = "Investigating"
	StatusResolved      = "Resolved"
	StatusClosed        = "Closed"
)

// Statuses returns the incident lifecycle states in order.
func Statuses() []string {
	return []string{StatusOpen, StatusInvestigating, StatusResolved, StatusClosed}
}

// NormalizeStatus maps an empty status to Open.
func NormalizeStatus(s string) string {
	if s == "" {
		return StatusOpen
	}
	return s
}

// Incident is one synthetic security incident.
// Details always holds the variant matching AttackType.
type Incident struct {
	IncidentID string
	AttackType AttackType
	Severity   Severity
	Status     string
	SourceIP   string
	Timestamp  time.Time
	Details    Details
}

// Details is the attack-type-specific part of an incident.
type Details interface {
	AttackType() AttackType
	// Target is the endpoint used for criticality lookups, empty when the attack has none.
	Target() string
	// Exposure extracts the impact magnitude shared by scoring and reporting.
	Exposure() Exposure
	sealed()
}

// Exposure summarizes how bad an incident was.
type Exposure struct {
	AffectedSystems int     `json:"affectedSystems"`
	ExposedRecords  int     `json:"exposedRecords"`
	ImpactFactor    float64 `json:"impactFactor"`
}

type incidentHeader struct {
	IncidentID string     `json:"incidentId"`
	AttackType AttackType `json:"attackType"`
	Severity   Severity   `json:"severity"`
	Status     string     `json:"status,omitempty"`
	SourceIP   string     `json:"sourceIP,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// MarshalJSON writes the flat dashboard form: header fields and detail fields in one object.
func (i Incident) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(incidentHeader{
		IncidentID: i.IncidentID,
		AttackType: i.AttackType,
		Severity:   i.Severity,
		Status:     i.Status,
		SourceIP:   i.SourceIP,
		Timestamp:  i.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	if i.Details == nil {
		return head, nil
	}
	body, err := json.Marshal(i.Details)
	if err != nil {
		return nil, fmt.Errorf("marshal %s details: %w", i.AttackType, err)
	}
	return mergeObjects(head, body), nil
}

// UnmarshalJSON decodes the flat form, choosing the details variant from attackType.
func (i *Incident) UnmarshalJSON(data []byte) error {
	var head incidentHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	details, err := newDetails(head.AttackType)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, details); err != nil {
		return fmt.Errorf("decode %s details: %w", head.AttackType, err)
	}

	*i = Incident{
		IncidentID: head.IncidentID,
		AttackType: head.AttackType,
		Severity:   head.Severity,
		Status:     head.Status,
		SourceIP:   head.SourceIP,
		Timestamp:  head.Timestamp,
		Details:    derefDetails(details),
	}
	return nil
}

// Target returns the incident's criticality lookup endpoint.
func (i *Incident) Target() string {
	if i == nil || i.Details == nil {
		return ""
	}
	return i.Details.Target()
}

// Exposure returns the shared impact extraction, zero when details are missing.
func (i *Incident) Exposure() Exposure {
	if i == nil || i.Details == nil {
		return Exposure{}
	}
	return i.Details.Exposure()
}

// Fields flattens the incident into a generic field map (same keys as the JSON form).
func (i *Incident) Fields() map[string]interface{} {
	out := map[string]interface{}{}
	if i == nil {
		return out
	}
	raw, err := json.Marshal(i)
	if err != nil {
		return out
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	_ = dec.Decode(&out)
	return out
}

func newDetails(t AttackType) (Details, error) {
	switch t {
	case AttackDDoS:
		return &DDoSDetails{}, nil
	case AttackPhishing:
		return &PhishingDetails{}, nil
	case AttackMalware:
		return &MalwareDetails{}, nil
	case AttackSQLInjection:
		return &SQLInjectionDetails{}, nil
	case AttackXSS:
		return &XSSDetails{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttackType, t)
	}
}

func derefDetails(d Details) Details {
	switch v := d.(type) {
	case *DDoSDetails:
		return *v
	case *PhishingDetails:
		return *v
	case *MalwareDetails:
		return *v
	case *SQLInjectionDetails:
		return *v
	case *XSSDetails:
		return *v
	default:
		return d
	}
}

func mergeObjects(a, b []byte) []byte {
	a = bytes.TrimSpace(a)
	b = bytes.TrimSpace(b)
	if len(b) <= 2 {
		return a
	}
	if len(a) <= 2 {
		return b
	}
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a[:len(a)-1]...)
	out = append(out, ',')
	out = append(out, b[1:]...)
	return out
}
