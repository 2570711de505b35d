package rules

import (
	"fmt"
	"strconv"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"

	"socsim/pkg/models"
)

// Logsource values accepted by the engine. Empty values match too.
const (
	Product  = "socsim"
	Category = "incident"
)

func matchesIncidentLogsource(ls sigma.Logsource) bool {
	product := strings.ToLower(strings.TrimSpace(ls.Product))
	category := strings.ToLower(strings.TrimSpace(ls.Category))
	return (product == "" || product == Product) && (category == "" || category == Category)
}

// incidentEvent flattens an incident into string-valued fields.
// Nested objects use dotted keys and lists are joined with ", ".
func incidentEvent(inc *models.Incident) map[string]interface{} {
	event := make(map[string]interface{}, 24)
	flattenInto(event, "", inc.Fields())
	return event
}

func flattenInto(dst map[string]interface{}, prefix string, src map[string]interface{}) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case nil:
		case map[string]interface{}:
			flattenInto(dst, key, val)
		default:
			dst[key] = fieldString(val)
		}
	}
}

func fieldString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fieldString(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
