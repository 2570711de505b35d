package simulator

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"socsim/pkg/models"
)

var (
	malwareTypes = []string{"Ransomware", "Trojan", "Worm", "Spyware", "Rootkit", "Keylogger"}
	malwarePaths = []string{
		`C:\Users\Public\Downloads\invoice_2024.exe`,
		`C:\Windows\Temp\svchost32.exe`,
		`C:\ProgramData\update\updater.dll`,
		"/tmp/.cache/kworkerd",
		"/var/tmp/.x11/sshd",
		"/usr/local/bin/cron-helper",
	}
	malwareBehaviors = []string{
		"Registry persistence",
		"Outbound C2 beaconing",
		"File encryption",
		"Credential dumping",
		"Process injection",
		"Keystroke capture",
		"Disabling security tools",
		"Lateral SMB scanning",
	}
)

// MalwareSeverityPolicy maps the infected-systems count to a severity.
// Counts below MediumAt are Low, below HighAt Medium, below CriticalAt High, anything else Critical.
type MalwareSeverityPolicy struct {
	MediumAt   int
	HighAt     int
	CriticalAt int
}

// DefaultMalwareSeverityPolicy returns the stock thresholds.
func DefaultMalwareSeverityPolicy() MalwareSeverityPolicy {
	return MalwareSeverityPolicy{MediumAt: 6, HighAt: 16, CriticalAt: 36}
}

// Validate checks the thresholds are positive and strictly ascending.
func (p MalwareSeverityPolicy) Validate() error {
	if p.MediumAt <= 0 || p.HighAt <= p.MediumAt || p.CriticalAt <= p.HighAt {
		return fmt.Errorf("malware severity thresholds must be positive and ascending, got medium=%d high=%d critical=%d",
			p.MediumAt, p.HighAt, p.CriticalAt)
	}
	return nil
}

// Severity buckets an infected-systems count.
func (p MalwareSeverityPolicy) Severity(infected int) models.Severity {
	switch {
	case infected < p.MediumAt:
		return models.SeverityLow
	case infected < p.HighAt:
		return models.SeverityMedium
	case infected < p.CriticalAt:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// Simulate draws a malware infection and rates it with the policy.
func (p MalwareSeverityPolicy) Simulate(r *rand.Rand) (models.MalwareDetails, models.Severity) {
	hash := make([]byte, 16)
	for i := range hash {
		hash[i] = byte(r.IntN(256))
	}

	behaviors := make([]string, 0, 4)
	for _, idx := range r.Perm(len(malwareBehaviors))[:between(r, 2, 4)] {
		behaviors = append(behaviors, malwareBehaviors[idx])
	}

	d := models.MalwareDetails{
		MalwareType:          pick(r, malwareTypes),
		InfectedFilePath:     pick(r, malwarePaths),
		MD5Hash:              hex.EncodeToString(hash),
		BehaviorIndicators:   behaviors,
		InfectedSystemsCount: between(r, 1, 50),
	}
	return d, p.Severity(d.InfectedSystemsCount)
}
