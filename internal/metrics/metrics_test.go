package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

func TestPublishCountsByTypeAndSeverity(t *testing.T) {
	m := New()
	m.Publish(&models.Incident{AttackType: models.AttackDDoS, Severity: models.SeverityHigh})
	m.Publish(&models.Incident{AttackType: models.AttackDDoS, Severity: models.SeverityHigh})
	m.Publish(&models.Incident{AttackType: models.AttackXSS, Severity: models.SeverityLow})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsGenerated.WithLabelValues("DDoS", "High")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsGenerated.WithLabelValues("XSS", "Low")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Publish(&models.Incident{})
		m.ObserveScore(50)
		m.SetStreamRunning(true)
		m.DispatchDropped()
		m.SinkError("file")
		m.FeedClients(3)
		m.AlertsRaised(1)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.SetStreamRunning(true)
	m.SinkError("kafka")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "socsim_stream_running 1"))
	assert.True(t, strings.Contains(text, `socsim_sink_write_errors_total{sink="kafka"} 1`))
}
