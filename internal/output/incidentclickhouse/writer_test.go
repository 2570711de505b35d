package incidentclickhouse

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

func sqlRow() *models.EnrichedIncident {
	return &models.EnrichedIncident{
		StoreID: "4d7c",
		Incident: &models.Incident{
			IncidentID: "INC-000777",
			AttackType: models.AttackSQLInjection,
			Severity:   models.SeverityCritical,
			Status:     models.StatusOpen,
			SourceIP:   "203.0.113.45",
			Timestamp:  time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
			Details: models.SQLInjectionDetails{
				TargetEndpoint: "/api/users",
				Payload:        "1; DROP TABLE users",
				Success:        true,
				DataExposed:    &models.SQLExposure{UsernamesExposed: 100, EmailsExposed: 100, PasswordsCount: 100},
			},
		},
		Threat:         models.ThreatAssessment{Score: 88, Severity: models.SeverityCritical},
		Classification: models.Classification{Categories: []string{"Web Attack"}, MitreAttack: models.MitreAttack{ID: "T1190", Name: "Exploit Public-Facing Application"}},
		Tags:           []models.RuleTag{{ID: "rule-1"}},
	}
}

func TestFlattenRow(t *testing.T) {
	row, err := FlattenRow(sqlRow())
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01 09:30:00.000", row.Timestamp)
	assert.Equal(t, "/api/users", row.Target)
	assert.Equal(t, 300, row.ExposedRecords)
	assert.Equal(t, []string{"rule-1"}, row.RuleIDs)
	assert.Contains(t, row.Details, `"payload":"1; DROP TABLE users"`)
}

func TestWriterPostsJSONEachRow(t *testing.T) {
	var query, user string
	var rows []Row
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		user = r.Header.Get("X-ClickHouse-User")
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var row Row
			if err := json.Unmarshal(sc.Bytes(), &row); err == nil {
				rows = append(rows, row)
			}
		}
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL + "/", Database: "soc", Username: "ingest"})
	require.NoError(t, err)
	require.NoError(t, w.WriteIncidents([]*models.EnrichedIncident{sqlRow(), nil}))

	assert.Equal(t, "INSERT INTO `soc`.`socsim_incidents` FORMAT JSONEachRow", query)
	assert.Equal(t, "ingest", user)
	require.Len(t, rows, 1)
	assert.Equal(t, 88, rows[0].ThreatScore)
	assert.Equal(t, "T1190", rows[0].MitreID)
}

func TestWriterSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Code: 60. Table does not exist", http.StatusNotFound)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	require.NoError(t, err)
	err = w.WriteIncidents([]*models.EnrichedIncident{sqlRow()})
	assert.ErrorContains(t, err, "Table does not exist")
}
