package simulator

import (
	"math/rand/v2"

	"socsim/pkg/models"
)

type injectionPayload struct {
	payload string
	kind    string
}

var (
	sqlPayloads = []injectionPayload{
		{"' OR '1'='1", "Union-based"},
		{"admin'--", "Error-based"},
		{"1; DROP TABLE users--", "Blind"},
		{"' UNION SELECT * FROM passwords--", "Union-based"},
	}
	sqlVulnerabilityTypes = []string{"Error-based", "Union-based", "Blind", "Time-based"}
	attackComplexities    = []string{"Low", "Medium", "High"}
	sqlEndpoints          = []string{"/api/login", "/api/search", "/api/users", "/api/products"}
)

// SQLInjectionSuccessRate is the probability that a simulated SQL injection succeeds.
const SQLInjectionSuccessRate = 0.3

// ExposureSeverity buckets the number of leaked records of a successful injection.
func ExposureSeverity(total int) models.Severity {
	switch {
	case total <= 50:
		return models.SeverityMedium
	case total <= 200:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// SimulateSQLInjection draws a SQL injection attempt. Failed attempts are always Low and expose nothing.
func SimulateSQLInjection(r *rand.Rand) (models.SQLInjectionDetails, models.Severity) {
	success := r.Float64() < SQLInjectionSuccessRate
	payload := pick(r, sqlPayloads)

	d := models.SQLInjectionDetails{
		TargetEndpoint:   pick(r, sqlEndpoints),
		Payload:          payload.payload,
		AttackComplexity: pick(r, attackComplexities),
		Success:          success,
	}
	if !success {
		d.VulnerabilityType = pick(r, sqlVulnerabilityTypes)
		return d, models.SeverityLow
	}

	d.VulnerabilityType = payload.kind
	d.DataExposed = &models.SQLExposure{
		UsernamesExposed: between(r, 10, 509),
		EmailsExposed:    between(r, 10, 509),
		PasswordsCount:   between(r, 10, 509),
	}
	return d, ExposureSeverity(d.DataExposed.Total())
}
