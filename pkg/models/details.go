package models

import "math"

// DDoSDetails describes a volumetric flood.
type DDoSDetails struct {
	TargetURL         string `json:"targetURL"`
	AttackIntensity   int    `json:"attackIntensity"`
	RequestsPerSecond int    `json:"requestsPerSecond"`
	Port              int    `json:"port"`
	DurationSeconds   int    `json:"duration"`
}

// PhishingDetails describes a phishing campaign.
type PhishingDetails struct {
	SenderEmail  string `json:"senderEmail"`
	TargetEmail  string `json:"targetEmail"`
	Subject      string `json:"subject"`
	PhishingType string `json:"phishingType"`
	SuccessRate  int    `json:"successRate"`
}

// MalwareDetails describes a malware infection.
type MalwareDetails struct {
	MalwareType          string   `json:"malwareType"`
	InfectedFilePath     string   `json:"infectedFilePath"`
	MD5Hash              string   `json:"md5Hash"`
	BehaviorIndicators   []string `json:"behaviorIndicators"`
	InfectedSystemsCount int      `json:"infectedSystemsCount"`
}

// SQLExposure counts records leaked by a successful SQL injection.
type SQLExposure struct {
	UsernamesExposed int `json:"usernamesExposed"`
	EmailsExposed    int `json:"emailsExposed"`
	PasswordsCount   int `json:"passwordsCount"`
}

// Total sums all exposed records.
func (e *SQLExposure) Total() int {
	if e == nil {
		return 0
	}
	return e.UsernamesExposed + e.EmailsExposed + e.PasswordsCount
}

// SQLInjectionDetails describes a SQL injection attempt.
// DataExposed is nil when the attempt failed.
type SQLInjectionDetails struct {
	TargetEndpoint    string       `json:"targetEndpoint"`
	Payload           string       `json:"payload"`
	VulnerabilityType string       `json:"vulnerabilityType"`
	AttackComplexity  string       `json:"attackComplexity"`
	Success           bool         `json:"success"`
	DataExposed       *SQLExposure `json:"dataExposed"`
}

// XSSExposure counts what a successful script injection stole.
type XSSExposure struct {
	CookiesStolen       int `json:"cookiesStolen"`
	SessionTokensStolen int `json:"sessionTokensStolen"`
	UsersAffected       int `json:"usersAffected"`
}

// Total sums all stolen artifacts.
func (e *XSSExposure) Total() int {
	if e == nil {
		return 0
	}
	return e.CookiesStolen + e.SessionTokensStolen + e.UsersAffected
}

// XSSDetails describes a cross-site scripting attempt.
// DataExposed is nil and Impact empty when the attempt failed.
type XSSDetails struct {
	TargetEndpoint          string       `json:"targetEndpoint"`
	TargetURL               string       `json:"targetURL"`
	Payload                 string       `json:"payload"`
	XSSType                 string       `json:"xssType"`
	Success                 bool         `json:"success"`
	Impact                  string       `json:"impact,omitempty"`
	InputValidationBypassed bool         `json:"inputValidationBypassed"`
	DataExposed             *XSSExposure `json:"dataExposed"`
}

func (DDoSDetails) AttackType() AttackType         { return AttackDDoS }
func (PhishingDetails) AttackType() AttackType     { return AttackPhishing }
func (MalwareDetails) AttackType() AttackType      { return AttackMalware }
func (SQLInjectionDetails) AttackType() AttackType { return AttackSQLInjection }
func (XSSDetails) AttackType() AttackType          { return AttackXSS }

func (DDoSDetails) sealed()         {}
func (PhishingDetails) sealed()     {}
func (MalwareDetails) sealed()      {}
func (SQLInjectionDetails) sealed() {}
func (XSSDetails) sealed()          {}

func (d DDoSDetails) Target() string         { return d.TargetURL }
func (PhishingDetails) Target() string       { return "" }
func (MalwareDetails) Target() string        { return "" }
func (d SQLInjectionDetails) Target() string { return d.TargetEndpoint }
func (d XSSDetails) Target() string          { return d.TargetEndpoint }

// failedInjectionFactor is the impact assigned to blocked injection attempts.
const failedInjectionFactor = 0.2

func (d DDoSDetails) Exposure() Exposure {
	return Exposure{
		AffectedSystems: 1,
		ImpactFactor:    clampUnit(float64(d.RequestsPerSecond) / 5000),
	}
}

func (d PhishingDetails) Exposure() Exposure {
	return Exposure{
		AffectedSystems: 1,
		ExposedRecords:  d.SuccessRate,
		ImpactFactor:    clampUnit(float64(d.SuccessRate) / 100),
	}
}

func (d MalwareDetails) Exposure() Exposure {
	infected := d.InfectedSystemsCount
	if infected < 1 {
		infected = 1
	}
	return Exposure{
		AffectedSystems: d.InfectedSystemsCount,
		ImpactFactor:    clampUnit(float64(infected) / 50),
	}
}

func (d SQLInjectionDetails) Exposure() Exposure {
	out := Exposure{AffectedSystems: 1, ExposedRecords: d.DataExposed.Total()}
	if d.Success && d.DataExposed != nil {
		out.ImpactFactor = clampUnit(float64(d.DataExposed.Total()) / 1000)
	} else {
		out.ImpactFactor = failedInjectionFactor
	}
	return out
}

func (d XSSDetails) Exposure() Exposure {
	out := Exposure{AffectedSystems: 1}
	if d.DataExposed != nil {
		out.ExposedRecords = d.DataExposed.UsersAffected
	}
	if d.Success && d.DataExposed != nil {
		out.ImpactFactor = clampUnit(float64(d.DataExposed.Total()) / 500)
	} else {
		out.ImpactFactor = failedInjectionFactor
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
