package incidenthttp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

func TestWriterPostsBatch(t *testing.T) {
	var got []map[string]interface{}
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t"}})
	require.NoError(t, err)
	defer w.Close()

	rows := []*models.EnrichedIncident{{
		Incident: &models.Incident{IncidentID: "INC-000321", AttackType: models.AttackMalware, Details: models.MalwareDetails{MalwareType: "Worm"}},
		Threat:   models.ThreatAssessment{Score: 55},
	}}
	require.NoError(t, w.WriteIncidents(rows))

	require.Len(t, got, 1)
	assert.Equal(t, "INC-000321", got[0]["incident"].(map[string]interface{})["incidentId"])
	assert.Equal(t, "Bearer t", header.Get("Authorization"))
	assert.Equal(t, "1", header.Get("X-Socsim-Batch-Size"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
}

func TestWriterReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	require.NoError(t, err)
	err = w.WriteIncidents([]*models.EnrichedIncident{{Incident: &models.Incident{IncidentID: "INC-1"}}})
	assert.ErrorContains(t, err, "503")

	assert.NoError(t, w.WriteIncidents(nil))
	_, err = NewWriter(Config{})
	assert.Error(t, err)
}
