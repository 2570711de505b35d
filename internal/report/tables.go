package report

import "socsim/pkg/models"

const (
	notApplicable   = "N/A"
	defaultTarget   = "critical systems"
	unknownVector   = "Unknown attack vector"
	unknownDamage   = "Unknown"
	criticalRecover = "4-24 hours"
	defaultRecover  = "1-8 hours"
)

var impactLevels = map[models.Severity]string{
	models.SeverityCritical: "Systems are completely unavailable or compromised",
	models.SeverityHigh:     "Significant degradation of services or major data exposure",
	models.SeverityMedium:   "Moderate impact on services or sensitive data at risk",
	models.SeverityLow:      "Minimal impact with limited data exposure",
}

var attackVectors = map[models.AttackType]string{
	models.AttackDDoS:         "Network-based volumetric attack overwhelming server resources through distributed sources",
	models.AttackPhishing:     "Social engineering attack using deceptive emails to trick users into revealing credentials or executing malware",
	models.AttackMalware:      "Malicious software execution on systems to compromise integrity, confidentiality, or availability",
	models.AttackSQLInjection: "Web application attack exploiting SQL query vulnerabilities to access unauthorized database information",
	models.AttackXSS:          "Web application attack injecting malicious scripts to steal user data or session tokens",
}

var universalImmediate = []string{
	"Isolate affected systems from the network if not already done",
	"Collect logs and forensic data for analysis",
	"Document all findings and timeline",
}

type actionTemplate struct {
	immediate []string
	shortTerm []string
	longTerm  []string
}

// Malware immediate actions are built from the incident, see recommendedActions.
var actionTemplates = map[models.AttackType]actionTemplate{
	models.AttackDDoS: {
		immediate: []string{"Enable DDoS mitigation rules on firewalls", "Contact ISP to implement upstream filtering"},
		shortTerm: []string{"Implement rate limiting on edge servers", "Deploy CDN services for traffic distribution"},
		longTerm:  []string{"Establish comprehensive DDoS response plan", "Implement advanced threat detection systems"},
	},
	models.AttackPhishing: {
		immediate: []string{"Alert all users about the phishing campaign", "Block sender domain in email filters"},
		shortTerm: []string{"Force password reset for potentially affected users", "Enable MFA on all user accounts"},
		longTerm:  []string{"Implement email authentication (SPF, DKIM, DMARC)", "Conduct security awareness training"},
	},
	models.AttackMalware: {
		shortTerm: []string{"Update antivirus signatures", "Patch all vulnerable systems"},
		longTerm:  []string{"Implement behavioral analysis and EDR solutions", "Establish regular patching schedule"},
	},
	models.AttackSQLInjection: {
		immediate: []string{"Apply input validation patches immediately", "Review database access logs"},
		shortTerm: []string{"Implement parameterized queries throughout application", "Deploy Web Application Firewall (WAF)"},
		longTerm:  []string{"Establish secure SDLC practices", "Conduct security code review"},
	},
	models.AttackXSS: {
		immediate: []string{"Apply output encoding patches", "Review affected web pages for malicious code"},
		shortTerm: []string{"Implement Content Security Policy (CSP) headers", "Deploy Web Application Firewall (WAF)"},
		longTerm:  []string{"Establish secure development training", "Implement automated security testing"},
	},
}
