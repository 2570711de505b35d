package simulator

import (
	"math/rand/v2"
	"net/url"

	"socsim/pkg/models"
)

var (
	xssPayloads = []injectionPayload{
		{"<script>alert('XSS')</script>", "Stored"},
		{"<img src=x onerror=alert(1)>", "Reflected"},
		{"<iframe src=javascript:alert('XSS')></iframe>", "DOM-based"},
		{"'-alert(1)-'", "Reflected"},
	}
	xssEndpoints = []string{"/search", "/comments", "/profile", "/dashboard"}
	xssImpacts   = []string{"Cookie theft", "Session hijacking", "Defacement", "Redirection"}
)

// XSSSuccessRate is the probability that a simulated script injection bypasses input validation.
const XSSSuccessRate = 0.4

// SimulateXSS draws a script injection attempt. Failed attempts are always Low and expose nothing.
func SimulateXSS(r *rand.Rand) (models.XSSDetails, models.Severity) {
	success := r.Float64() < XSSSuccessRate
	payload := pick(r, xssPayloads)
	endpoint := pick(r, xssEndpoints)

	d := models.XSSDetails{
		TargetEndpoint:          endpoint,
		TargetURL:               "http://vulnerable-app.com" + endpoint + "?input=" + url.QueryEscape(payload.payload),
		Payload:                 payload.payload,
		XSSType:                 payload.kind,
		Success:                 success,
		InputValidationBypassed: success,
	}
	if !success {
		return d, models.SeverityLow
	}

	d.Impact = pick(r, xssImpacts)
	d.DataExposed = &models.XSSExposure{
		CookiesStolen:       between(r, 0, 99),
		SessionTokensStolen: between(r, 0, 49),
		UsersAffected:       between(r, 1, 200),
	}
	return d, ExposureSeverity(d.DataExposed.Total())
}
