package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RenderMarkdown writes every field of r as Markdown headings, lists and tables.
func RenderMarkdown(r *Report) string {
	if r == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString("# Security Incident Report\n\n")
	fmt.Fprintf(&b, "**Report ID:** %s\n", r.Metadata.ReportID)
	fmt.Fprintf(&b, "**Generated:** %s\n", formatTime(r.Metadata.Generated))
	fmt.Fprintf(&b, "**Version:** %s\n\n", r.Metadata.Version)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(r.ExecutiveSummary)
	b.WriteString("\n\n")

	d := r.AttackDetails
	b.WriteString("## Attack Details\n\n")
	writeTable(&b, []string{"Field", "Value"}, [][]string{
		{"Incident ID", d.IncidentID},
		{"Attack Type", string(d.AttackType)},
		{"Severity", string(d.Severity)},
		{"Status", d.Status},
		{"Source IP", d.SourceIP},
		{"Target", d.Target},
		{"Timestamp", formatTime(d.Timestamp)},
		{"Success", d.Success},
	})

	if len(d.Fields) > 0 {
		b.WriteString("### Incident Fields\n\n")
		keys := make([]string, 0, len(d.Fields))
		for k := range d.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, formatValue(d.Fields[k])})
		}
		writeTable(&b, []string{"Field", "Value"}, rows)
	}

	t := r.ThreatAssessment
	b.WriteString("## Threat Assessment\n\n")
	fmt.Fprintf(&b, "**Threat Score:** %d/100\n\n", t.Score)
	fmt.Fprintf(&b, "**Threat Severity:** %s\n\n", t.Severity)
	b.WriteString("**Contributing Factors:**\n")
	writeList(&b, t.Factors)

	c := r.Classification
	b.WriteString("## Classification\n\n")
	fmt.Fprintf(&b, "**Categories:** %s\n\n", strings.Join(c.Categories, ", "))
	mitreID := c.MitreAttack.ID
	if mitreID == "" {
		mitreID = notApplicable
	}
	fmt.Fprintf(&b, "**MITRE ATT&CK:** %s (%s)\n\n", mitreID, c.MitreAttack.Name)
	b.WriteString("**Mitigation:**\n")
	writeList(&b, c.Mitigation)

	b.WriteString("## Attack Vector\n\n")
	fmt.Fprintf(&b, "**Description:** %s\n\n", r.AttackVector.Description)
	fmt.Fprintf(&b, "**Vulnerability Type:** %s\n\n", r.AttackVector.VulnerabilityType)
	fmt.Fprintf(&b, "**Attack Complexity:** %s\n\n", r.AttackVector.AttackComplexity)

	b.WriteString("## Timeline\n\n")
	for _, e := range r.Timeline {
		fmt.Fprintf(&b, "%d. **%s** - %s (%s)\n", e.Sequence, formatTime(e.Timestamp), e.Event, e.Severity)
	}
	b.WriteString("\n")

	im := r.ImpactAssessment
	b.WriteString("## Impact Assessment\n\n")
	fmt.Fprintf(&b, "- **Affected Systems:** %d\n", im.AffectedSystems)
	fmt.Fprintf(&b, "- **Data Exposed:** %d records\n", im.DataExposedRecords)
	fmt.Fprintf(&b, "- **Impact Factor:** %.2f (%d%%)\n", im.ImpactFactor, int(im.ImpactFactor*100+0.5))
	fmt.Fprintf(&b, "- **Potential Damage:** %s\n", im.PotentialDamage)
	fmt.Fprintf(&b, "- **Estimated Recovery Time:** %s\n\n", im.EstimatedRecoveryTime)

	b.WriteString("## Indicators of Compromise (IOCs)\n\n")
	if len(r.IndicatorsOfCompromise) > 0 {
		rows := make([][]string, 0, len(r.IndicatorsOfCompromise))
		for _, ioc := range r.IndicatorsOfCompromise {
			rows = append(rows, []string{ioc.Type, ioc.Value, string(ioc.Severity)})
		}
		writeTable(&b, []string{"Type", "Value", "Severity"}, rows)
	} else {
		b.WriteString("No indicators of compromise identified.\n\n")
	}

	b.WriteString("## Recommended Actions\n\n")
	b.WriteString("### Immediate Actions\n")
	writeList(&b, r.RecommendedActions.Immediate)
	b.WriteString("### Short-Term Actions (1-7 days)\n")
	writeList(&b, r.RecommendedActions.ShortTerm)
	b.WriteString("### Long-Term Actions (1-3 months)\n")
	writeList(&b, r.RecommendedActions.LongTerm)

	b.WriteString("## Related Incidents\n\n")
	if len(r.RelatedIncidents) > 0 {
		rows := make([][]string, 0, len(r.RelatedIncidents))
		for _, inc := range r.RelatedIncidents {
			rows = append(rows, []string{inc.IncidentID, string(inc.AttackType), formatTime(inc.Timestamp), string(inc.Severity), inc.SourceIP})
		}
		writeTable(&b, []string{"Incident ID", "Type", "Timestamp", "Severity", "Source IP"}, rows)
	} else {
		b.WriteString("No related incidents.\n\n")
	}

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Related Incidents:** %d\n", r.Statistics.TotalRelatedIncidents)
	fmt.Fprintf(&b, "- **Report Generated At:** %s\n", formatTime(r.Statistics.ReportGeneratedAt))

	return b.String()
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	seps := make([]string, len(header))
	for i, h := range header {
		seps[i] = strings.Repeat("-", len(h))
	}
	b.WriteString("|" + strings.Join(seps, "|") + "|\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeCell(cell)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}
