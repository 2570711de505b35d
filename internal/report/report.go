package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"socsim/internal/categorize"
	"socsim/internal/threat"
	"socsim/pkg/models"
)

// ErrMissingIncident is returned by Build when no incident is given.
var ErrMissingIncident = errors.New("incident is required to build a report")

// Version is the report schema version.
const Version = "1.0"

// Report is the structured incident report.
type Report struct {
	Metadata               Metadata                `json:"reportMetadata"`
	ExecutiveSummary       string                  `json:"executiveSummary"`
	AttackDetails          AttackDetails           `json:"attackDetails"`
	ThreatAssessment       models.ThreatAssessment `json:"threatAssessment"`
	Classification         models.Classification   `json:"classification"`
	AttackVector           AttackVector            `json:"attackVector"`
	Timeline               []TimelineEntry         `json:"timeline"`
	ImpactAssessment       ImpactAssessment        `json:"impactAssessment"`
	IndicatorsOfCompromise []IOC                   `json:"indicatorsOfCompromise"`
	RecommendedActions     RecommendedActions      `json:"recommendedActions"`
	RelatedIncidents       []RelatedIncident       `json:"relatedIncidents"`
	Statistics             Statistics              `json:"statistics"`
}

type Metadata struct {
	Generated time.Time `json:"generated"`
	ReportID  string    `json:"reportId"`
	Version   string    `json:"version"`
}

// AttackDetails repeats the incident: the summary fields plus every wire field in Fields.
type AttackDetails struct {
	IncidentID string                 `json:"incidentId"`
	AttackType models.AttackType      `json:"attackType"`
	Severity   models.Severity        `json:"severity"`
	Status     string                 `json:"status"`
	SourceIP   string                 `json:"sourceIP"`
	Target     string                 `json:"targetURL"`
	Timestamp  time.Time              `json:"timestamp"`
	Success    string                 `json:"success"`
	Fields     map[string]interface{} `json:"fields"`
}

type AttackVector struct {
	Description       string `json:"description"`
	VulnerabilityType string `json:"vulnerabilityType"`
	AttackComplexity  string `json:"attackComplexity"`
}

type TimelineEntry struct {
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Event     string          `json:"event"`
	Severity  models.Severity `json:"severity"`
}

type ImpactAssessment struct {
	AffectedSystems       int     `json:"affectedSystems"`
	DataExposedRecords    int     `json:"dataExposedRecords"`
	ImpactFactor          float64 `json:"impactFactor"`
	PotentialDamage       string  `json:"potentialDamage"`
	EstimatedRecoveryTime string  `json:"estimatedRecoveryTime"`
}

// IOC is an indicator of compromise extracted from the incident.
type IOC struct {
	Type     string          `json:"type"`
	Value    string          `json:"value"`
	Severity models.Severity `json:"severity"`
}

type RecommendedActions struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"shortTerm"`
	LongTerm  []string `json:"longTerm"`
}

type RelatedIncident struct {
	IncidentID string            `json:"incidentId"`
	AttackType models.AttackType `json:"attackType"`
	Timestamp  time.Time         `json:"timestamp"`
	Severity   models.Severity   `json:"severity"`
	SourceIP   string            `json:"sourceIP"`
}

type Statistics struct {
	TotalRelatedIncidents int       `json:"totalRelatedIncidents"`
	ReportGeneratedAt     time.Time `json:"reportGeneratedAt"`
}

// Generator assembles reports.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a report generator; nil now uses time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Build assembles the report for inc. related may be empty.
func (g *Generator) Build(inc *models.Incident, related []*models.Incident) (*Report, error) {
	if inc == nil {
		return nil, ErrMissingIncident
	}
	generated := g.now().UTC()

	rel := make([]RelatedIncident, 0, len(related))
	for _, r := range related {
		if r == nil {
			continue
		}
		rel = append(rel, RelatedIncident{
			IncidentID: r.IncidentID,
			AttackType: r.AttackType,
			Timestamp:  r.Timestamp.UTC(),
			Severity:   r.Severity,
			SourceIP:   r.SourceIP,
		})
	}

	return &Report{
		Metadata: Metadata{
			Generated: generated,
			ReportID:  fmt.Sprintf("RPT-%s-%d", inc.IncidentID, generated.UnixMilli()),
			Version:   Version,
		},
		ExecutiveSummary:       executiveSummary(inc),
		AttackDetails:          attackDetails(inc),
		ThreatAssessment:       threat.Score(inc),
		Classification:         categorize.Incident(inc),
		AttackVector:           attackVector(inc),
		Timeline:               timeline(inc, rel),
		ImpactAssessment:       impactAssessment(inc),
		IndicatorsOfCompromise: extractIOCs(inc),
		RecommendedActions:     recommendedActions(inc),
		RelatedIncidents:       rel,
		Statistics: Statistics{
			TotalRelatedIncidents: len(rel),
			ReportGeneratedAt:     generated,
		},
	}, nil
}

// RenderJSON serializes the report with two-space indentation.
func RenderJSON(r *Report) (string, error) {
	if r == nil {
		return "", ErrMissingIncident
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func executiveSummary(inc *models.Incident) string {
	target := inc.Target()
	if target == "" {
		target = defaultTarget
	}
	return fmt.Sprintf("A %s attack was detected on %s from source IP %s. The attack targeted %s with %s severity. %s. Immediate investigation and remediation actions are recommended.",
		inc.AttackType, formatTime(inc.Timestamp), inc.SourceIP, target, inc.Severity, potentialDamage(inc.Severity))
}

func attackDetails(inc *models.Incident) AttackDetails {
	status := inc.Status
	if status == "" {
		status = models.StatusOpen
	}
	target := inc.Target()
	if target == "" {
		target = notApplicable
	}
	success := notApplicable
	switch d := inc.Details.(type) {
	case models.SQLInjectionDetails:
		success = strconv.FormatBool(d.Success)
	case models.XSSDetails:
		success = strconv.FormatBool(d.Success)
	}
	return AttackDetails{
		IncidentID: inc.IncidentID,
		AttackType: inc.AttackType,
		Severity:   inc.Severity,
		Status:     status,
		SourceIP:   inc.SourceIP,
		Target:     target,
		Timestamp:  inc.Timestamp.UTC(),
		Success:    success,
		Fields:     inc.Fields(),
	}
}

func attackVector(inc *models.Incident) AttackVector {
	out := AttackVector{
		Description:       unknownVector,
		VulnerabilityType: notApplicable,
		AttackComplexity:  notApplicable,
	}
	if desc, ok := attackVectors[inc.AttackType]; ok {
		out.Description = desc
	}
	switch d := inc.Details.(type) {
	case models.SQLInjectionDetails:
		out.VulnerabilityType = orNA(d.VulnerabilityType)
		out.AttackComplexity = orNA(d.AttackComplexity)
	case models.XSSDetails:
		out.VulnerabilityType = orNA(d.XSSType)
	case models.PhishingDetails:
		out.VulnerabilityType = orNA(d.PhishingType)
	}
	return out
}

func timeline(inc *models.Incident, related []RelatedIncident) []TimelineEntry {
	if len(related) == 0 {
		return []TimelineEntry{{
			Sequence:  1,
			Timestamp: inc.Timestamp.UTC(),
			Event:     fmt.Sprintf("%s attack initiated", inc.AttackType),
			Severity:  inc.Severity,
		}}
	}
	out := make([]TimelineEntry, 0, len(related))
	for i, r := range related {
		out = append(out, TimelineEntry{
			Sequence:  i + 1,
			Timestamp: r.Timestamp,
			Event:     fmt.Sprintf("%s attack from %s", r.AttackType, r.SourceIP),
			Severity:  r.Severity,
		})
	}
	return out
}

// impactAssessment reads the same exposure extraction the threat scorer uses.
func impactAssessment(inc *models.Incident) ImpactAssessment {
	exp := inc.Exposure()
	recovery := defaultRecover
	if inc.Severity == models.SeverityCritical {
		recovery = criticalRecover
	}
	return ImpactAssessment{
		AffectedSystems:       exp.AffectedSystems,
		DataExposedRecords:    exp.ExposedRecords,
		ImpactFactor:          threat.ImpactFactor(inc),
		PotentialDamage:       potentialDamage(inc.Severity),
		EstimatedRecoveryTime: recovery,
	}
}

func extractIOCs(inc *models.Incident) []IOC {
	iocs := make([]IOC, 0, 3)
	if inc.SourceIP != "" {
		iocs = append(iocs, IOC{Type: "IP Address", Value: inc.SourceIP, Severity: inc.Severity})
	}

	switch d := inc.Details.(type) {
	case models.MalwareDetails:
		if d.MD5Hash != "" {
			iocs = append(iocs, IOC{Type: "MD5 Hash", Value: d.MD5Hash, Severity: models.SeverityCritical})
		}
		if d.InfectedFilePath != "" {
			iocs = append(iocs, IOC{Type: "File Path", Value: d.InfectedFilePath, Severity: inc.Severity})
		}
	case models.PhishingDetails:
		if d.SenderEmail != "" {
			iocs = append(iocs, IOC{Type: "Email Address", Value: d.SenderEmail, Severity: models.SeverityHigh})
		}
		if d.TargetEmail != "" {
			iocs = append(iocs, IOC{Type: "Target Email", Value: d.TargetEmail, Severity: models.SeverityMedium})
		}
	case models.SQLInjectionDetails:
		if d.Payload != "" {
			iocs = append(iocs, IOC{Type: "SQL Payload", Value: d.Payload, Severity: inc.Severity})
		}
	case models.XSSDetails:
		if d.Payload != "" {
			iocs = append(iocs, IOC{Type: "XSS Payload", Value: d.Payload, Severity: inc.Severity})
		}
	case models.DDoSDetails:
		if d.TargetURL != "" {
			iocs = append(iocs, IOC{Type: "Target URL", Value: d.TargetURL, Severity: inc.Severity})
		}
	}
	return iocs
}

func recommendedActions(inc *models.Incident) RecommendedActions {
	out := RecommendedActions{
		Immediate: append([]string(nil), universalImmediate...),
		ShortTerm: []string{},
		LongTerm:  []string{},
	}
	tpl, ok := actionTemplates[inc.AttackType]
	if !ok {
		return out
	}
	if d, isMalware := inc.Details.(models.MalwareDetails); isMalware {
		out.Immediate = append(out.Immediate,
			"Quarantine infected systems: "+orDefault(d.InfectedFilePath, "See IOCs"),
			"Scan all systems for MD5: "+orDefault(d.MD5Hash, "See IOCs"),
		)
	}
	out.Immediate = append(out.Immediate, tpl.immediate...)
	out.ShortTerm = append(out.ShortTerm, tpl.shortTerm...)
	out.LongTerm = append(out.LongTerm, tpl.longTerm...)
	return out
}

func potentialDamage(s models.Severity) string {
	if v, ok := impactLevels[s]; ok {
		return v
	}
	return unknownDamage
}

func orNA(s string) string { return orDefault(s, notApplicable) }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
