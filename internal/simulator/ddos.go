package simulator

import (
	"math/rand/v2"

	"socsim/pkg/models"
)

var (
	ddosTargets = []string{"/api/login", "/api/dashboard", "/api/data"}
	ddosPorts   = []int{80, 443, 8080, 3000}
)

// DDoSSeverity buckets a flood by requests per second.
func DDoSSeverity(rps int) models.Severity {
	switch {
	case rps <= 500:
		return models.SeverityLow
	case rps <= 1000:
		return models.SeverityMedium
	case rps <= 5000:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// SimulateDDoS draws a volumetric flood from one of three intensity bands.
func SimulateDDoS(r *rand.Rand) (models.DDoSDetails, models.Severity) {
	var intensity int
	switch band := r.Float64(); {
	case band < 0.33:
		intensity = between(r, 100, 500)
	case band < 0.66:
		intensity = between(r, 501, 1000)
	default:
		intensity = between(r, 1001, 5000)
	}

	d := models.DDoSDetails{
		TargetURL:         pick(r, ddosTargets),
		AttackIntensity:   intensity,
		RequestsPerSecond: intensity,
		Port:              pick(r, ddosPorts),
		DurationSeconds:   between(r, 5, 60),
	}
	return d, DDoSSeverity(d.RequestsPerSecond)
}
