package alerthttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

func TestWriterStripsEvidence(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	require.NoError(t, err)

	alert := &models.Alert{
		AlertID:  "ALR-1",
		SourceIP: "10.0.0.50",
		Score:    12,
		Evidence: []*models.EnrichedIncident{{Incident: &models.Incident{IncidentID: "INC-000001"}}},
	}
	require.NoError(t, w.WriteAlerts([]*models.Alert{alert, nil}))

	assert.Equal(t, float64(1), got["count"])
	first := got["alerts"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ALR-1", first["alert_id"])
	_, hasEvidence := first["evidence"]
	assert.False(t, hasEvidence)
	assert.Len(t, alert.Evidence, 1)
}
