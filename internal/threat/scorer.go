package threat

import (
	"fmt"
	"math"

	"socsim/pkg/models"
)

// Score computes the 0-100 threat assessment of an incident.
// The result depends only on the incident and the fixed tables.
func Score(inc *models.Incident) models.ThreatAssessment {
	if inc == nil {
		inc = &models.Incident{}
	}
	attackType := inc.AttackType
	if attackType == "" {
		attackType = "Unknown"
	}

	factors := make([]string, 0, 4)
	var total float64

	weight := TypeWeight(attackType)
	total += float64(weight) / maxTypePoints * maxTypePoints
	factors = append(factors, fmt.Sprintf("%s attack (weight: %d)", attackType, weight))

	impact := ImpactFactor(inc)
	total += impact * maxImpactPoints
	factors = append(factors, fmt.Sprintf("Success/impact factor: %d%%", percent(impact)))

	criticality := Criticality(inc.Target())
	total += criticality * maxCriticalityPoints
	factors = append(factors, fmt.Sprintf("Target criticality: %d%%", percent(criticality)))

	if KnownAttacker(inc.SourceIP) {
		total += knownSourcePoints
		factors = append(factors, fmt.Sprintf("Known attacker IP detected: %s", inc.SourceIP))
	} else {
		total += unknownSourcePoints
		factors = append(factors, fmt.Sprintf("Unknown source IP: %s", inc.SourceIP))
	}

	score := int(math.Round(total))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return models.ThreatAssessment{
		Score:    score,
		Severity: SeverityForScore(score),
		Factors:  factors,
	}
}

// ImpactFactor is the 0-1 success/impact magnitude of an incident.
func ImpactFactor(inc *models.Incident) float64 {
	if inc == nil || inc.Details == nil {
		return neutralImpact
	}
	return inc.Exposure().ImpactFactor
}

// ImpactPoints is the impact factor's contribution to the score.
func ImpactPoints(inc *models.Incident) float64 {
	return ImpactFactor(inc) * maxImpactPoints
}

// SeverityForScore buckets a score: <=25 Low, <=50 Medium, <=75 High, else Critical.
func SeverityForScore(score int) models.Severity {
	switch {
	case score <= 25:
		return models.SeverityLow
	case score <= 50:
		return models.SeverityMedium
	case score <= 75:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

func percent(f float64) int {
	return int(math.Round(f * 100))
}
