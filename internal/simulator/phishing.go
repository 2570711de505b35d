package simulator

import (
	"math/rand/v2"

	"socsim/pkg/models"
)

var (
	phishingSenderUsers = []string{"noreply", "admin", "support", "security", "verify", "alert", "notification", "system"}
	phishingSenderHosts = []string{
		"secure-verify.com", "account-confirm.net", "verify-identity.io", "security-alert.co",
		"urgent-support.com", "claims-notification.org", "delivery-confirm.net", "banking-update.io",
	}
	phishingTargetUsers = []string{"john.doe", "jane.smith", "employee", "user", "staff", "member", "account", "person"}
	phishingTargetHosts = []string{"company.com", "enterprise.io", "corporate.net", "business.org", "organization.com", "firm.io"}
	phishingSubjects    = []string{
		"Urgent: Account Verification Required",
		"Your package delivery failed",
		"Security Alert: Confirm your identity",
		"Action Required: Update your payment method",
		"Suspicious activity on your account",
		"Verify your account immediately",
		"Click here to confirm your credentials",
		"Important: Confirm your email address",
		"Your account has been compromised",
		"Update required for your banking app",
		"Unusual login attempt detected",
		"Claim your reward now",
	}
)

// phishingTypeBase is the base severity score of each lure type.
var phishingTypeBase = map[string]int{
	"Credential Theft":   3,
	"Malware Attachment": 4,
	"Fake Link":          2,
}

var phishingTypes = []string{"Credential Theft", "Malware Attachment", "Fake Link"}

// PhishingSeverity combines the lure type base score with the success rate.
func PhishingSeverity(phishingType string, successRate int) models.Severity {
	score := phishingTypeBase[phishingType]
	if successRate >= 50 {
		score += 2
	} else if successRate >= 30 {
		score++
	}

	switch {
	case score <= 2:
		return models.SeverityLow
	case score <= 4:
		return models.SeverityMedium
	case score <= 5:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// SimulatePhishing draws a phishing campaign with a three-tier success rate.
func SimulatePhishing(r *rand.Rand) (models.PhishingDetails, models.Severity) {
	var success int
	switch tier := r.Float64(); {
	case tier < 0.5:
		success = between(r, 1, 10)
	case tier < 0.75:
		success = between(r, 20, 39)
	default:
		success = between(r, 50, 89)
	}

	d := models.PhishingDetails{
		SenderEmail:  pick(r, phishingSenderUsers) + "@" + pick(r, phishingSenderHosts),
		TargetEmail:  pick(r, phishingTargetUsers) + "@" + pick(r, phishingTargetHosts),
		Subject:      pick(r, phishingSubjects),
		PhishingType: pick(r, phishingTypes),
		SuccessRate:  success,
	}
	return d, PhishingSeverity(d.PhishingType, d.SuccessRate)
}
