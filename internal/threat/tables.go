package threat

import "socsim/pkg/models"

// Point allocations of the four factors.
const (
	maxTypePoints        = 35.0
	maxImpactPoints      = 35.0
	maxCriticalityPoints = 20.0
	knownSourcePoints    = 10
	unknownSourcePoints  = 2
)

const (
	defaultTypeWeight  = 15
	defaultCriticality = 0.50
	// neutralImpact applies when an incident carries no details.
	neutralImpact = 0.5
	rootTarget    = "/"
)

var typeWeights = map[models.AttackType]int{
	models.AttackDDoS:         20,
	models.AttackPhishing:     25,
	models.AttackMalware:      30,
	models.AttackSQLInjection: 35,
	models.AttackXSS:          15,
}

var targetCriticality = map[string]float64{
	"/api/login":     0.95,
	"/api/search":    0.50,
	"/api/users":     0.85,
	"/api/products":  0.60,
	"/api/dashboard": 0.80,
	"/api/data":      0.75,
	"/admin":         0.95,
	"/":              0.40,
	"/profile":       0.70,
}

var knownAttackers = map[string]struct{}{
	"192.168.1.100": {},
	"10.0.0.50":     {},
	"172.16.0.1":    {},
	"203.0.113.45":  {},
	"198.51.100.89": {},
}

// TypeWeight returns the base weight for an attack type.
func TypeWeight(t models.AttackType) int {
	if w, ok := typeWeights[t]; ok {
		return w
	}
	return defaultTypeWeight
}

// Criticality returns the 0-1 criticality of an endpoint. Empty targets are treated as "/".
func Criticality(target string) float64 {
	if target == "" {
		target = rootTarget
	}
	if c, ok := targetCriticality[target]; ok {
		return c
	}
	return defaultCriticality
}

// KnownAttacker reports whether ip is on the reputation list.
func KnownAttacker(ip string) bool {
	_, ok := knownAttackers[ip]
	return ok
}
