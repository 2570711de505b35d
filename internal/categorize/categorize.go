package categorize

import "socsim/pkg/models"

type mapping struct {
	categories []string
	mitre      models.MitreAttack
}

var categoryTable = map[models.AttackType]mapping{
	models.AttackDDoS: {
		categories: []string{"Network Attack", "Availability"},
		mitre:      models.MitreAttack{ID: "T1499", Name: "Endpoint Denial of Service"},
	},
	models.AttackPhishing: {
		categories: []string{"Social Engineering", "Credential Theft"},
		mitre:      models.MitreAttack{ID: "T1566", Name: "Phishing"},
	},
	models.AttackMalware: {
		categories: []string{"Application Attack", "Data Integrity"},
		mitre:      models.MitreAttack{ID: "T1204", Name: "User Execution"},
	},
	models.AttackSQLInjection: {
		categories: []string{"Application Attack", "Data Breach"},
		mitre:      models.MitreAttack{ID: "T1190", Name: "Exploit Public-Facing Application"},
	},
	models.AttackXSS: {
		categories: []string{"Web Attack", "Client-side"},
		mitre:      models.MitreAttack{ID: "T1189", Name: "Drive-by Compromise"},
	},
}

var mitigationTable = map[models.AttackType][]string{
	models.AttackDDoS: {
		"Enable DDoS protection services",
		"Configure rate limiting on network devices",
		"Implement traffic filtering and blocking rules",
		"Scale infrastructure to handle traffic spikes",
		"Use CDN services to absorb attacks",
		"Monitor network bandwidth and traffic patterns",
	},
	models.AttackPhishing: {
		"Conduct user security awareness training",
		"Implement email filtering and authentication (SPF, DKIM, DMARC)",
		"Deploy advanced threat protection on email",
		"Enable multi-factor authentication (MFA)",
		"Monitor for suspicious email patterns",
		"Create clear incident reporting procedures",
	},
	models.AttackMalware: {
		"Update and patch all systems regularly",
		"Deploy endpoint protection software",
		"Implement application whitelisting",
		"Monitor process execution and network connections",
		"Isolate infected systems immediately",
		"Perform forensic analysis on compromised systems",
		"Review and update security policies",
	},
	models.AttackSQLInjection: {
		"Use parameterized queries and prepared statements",
		"Implement input validation and sanitization",
		"Apply principle of least privilege to database accounts",
		"Use Web Application Firewalls (WAF)",
		"Encrypt sensitive data in databases",
		"Regular security code reviews and testing",
		"Monitor database query logs for suspicious patterns",
	},
	models.AttackXSS: {
		"Implement Content Security Policy (CSP) headers",
		"Use output encoding and escaping for all user input",
		"Validate and sanitize all user inputs",
		"Use secure JavaScript libraries and frameworks",
		"Deploy Web Application Firewalls (WAF)",
		"Regular security testing and code reviews",
		"Keep all client-side libraries updated",
	},
}

var (
	unknownMapping = mapping{
		categories: []string{"Unknown Attack"},
		mitre:      models.MitreAttack{ID: "", Name: "Unknown"},
	}
	genericMitigation = []string{
		"Isolate affected systems",
		"Analyze attack patterns",
		"Document incident details",
	}
)

// Categorize maps an attack type to categories, its ATT&CK technique and a
// mitigation checklist. Unknown types get a generic classification.
// The returned slices are copies and may be modified by the caller.
func Categorize(t models.AttackType) models.Classification {
	m, ok := categoryTable[t]
	if !ok {
		m = unknownMapping
	}
	steps, ok := mitigationTable[t]
	if !ok {
		steps = genericMitigation
	}
	return models.Classification{
		Categories:  append([]string(nil), m.categories...),
		MitreAttack: m.mitre,
		Mitigation:  append([]string(nil), steps...),
	}
}

// Incident categorizes inc by its attack type.
func Incident(inc *models.Incident) models.Classification {
	if inc == nil {
		return Categorize("")
	}
	return Categorize(inc.AttackType)
}
