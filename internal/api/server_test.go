package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/internal/metrics"
	"socsim/internal/pattern"
	"socsim/internal/report"
	"socsim/internal/store"
	"socsim/pkg/models"
)

type fakeStream struct {
	mu      sync.Mutex
	running bool
	pattern string
}

func (f *fakeStream) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeStream) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return false
	}
	f.running = false
	return true
}

func (f *fakeStream) SetPattern(name string) bool {
	if !pattern.Valid(name) {
		return false
	}
	f.mu.Lock()
	f.pattern = name
	f.mu.Unlock()
	return true
}

func (f *fakeStream) Stats() models.StreamStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.StreamStats{CurrentPattern: f.pattern, IsRunning: f.running}
}

func setup(t *testing.T) (*httptest.Server, *fakeStream, store.Store) {
	t.Helper()
	st, err := store.NewMemoryStore(50)
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	seed := []*models.Incident{
		{IncidentID: "INC-000001", AttackType: models.AttackSQLInjection, Severity: models.SeverityLow, SourceIP: "10.0.0.50", Timestamp: base,
			Details: models.SQLInjectionDetails{TargetEndpoint: "/api/login", Payload: "admin'--"}},
		{IncidentID: "INC-000002", AttackType: models.AttackDDoS, Severity: models.SeverityHigh, SourceIP: "10.0.0.50", Timestamp: base.Add(time.Minute),
			Details: models.DDoSDetails{TargetURL: "/api/data", RequestsPerSecond: 2000, AttackIntensity: 2000}},
		{IncidentID: "INC-000003", AttackType: models.AttackSQLInjection, Severity: models.SeverityCritical, SourceIP: "198.51.100.89", Timestamp: base.Add(2 * time.Minute),
			Details: models.SQLInjectionDetails{TargetEndpoint: "/api/users", Payload: "' OR '1'='1", Success: true, DataExposed: &models.SQLExposure{UsernamesExposed: 100, EmailsExposed: 100, PasswordsCount: 100}}},
	}
	for _, inc := range seed {
		_, err := st.Save(ctx, &models.EnrichedIncident{Incident: inc})
		require.NoError(t, err)
	}

	stream := &fakeStream{pattern: pattern.Normal}
	srv := NewServer(stream, st, report.NewGenerator(func() time.Time { return base.Add(time.Hour) }), Options{
		Metrics:  metrics.New().Handler(),
		Patterns: pattern.Names(),
	})
	srv.now = func() time.Time { return base.Add(time.Hour) }
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, stream, st
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts, _, _ := setup(t)
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	decode(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	_, err = time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
	assert.False(t, body.Streaming)
}

func TestStreamStartStop(t *testing.T) {
	ts, stream, _ := setup(t)

	resp, err := http.Post(ts.URL+"/api/stream/start", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, stream.Stats().IsRunning)

	resp, err = http.Post(ts.URL+"/api/stream/start", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody errorResponse
	decode(t, resp, &errBody)
	assert.Equal(t, "Attack stream is already running", errBody.Error)

	resp, err = http.Post(ts.URL+"/api/stream/stop", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/api/stream/stop", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStreamPattern(t *testing.T) {
	ts, stream, _ := setup(t)

	resp, err := http.Post(ts.URL+"/api/stream/pattern", "application/json", strings.NewReader(`{"pattern":"wave"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "wave", stream.Stats().CurrentPattern)

	resp, err = http.Post(ts.URL+"/api/stream/pattern", "application/json", strings.NewReader(`{"pattern":"bogus"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody errorResponse
	decode(t, resp, &errBody)
	assert.Equal(t, "Invalid pattern", errBody.Error)
	assert.Equal(t, []string{"calm", "normal", "sustained", "wave"}, errBody.ValidPatterns)
	assert.Equal(t, "wave", stream.Stats().CurrentPattern)

	resp, err = http.Post(ts.URL+"/api/stream/pattern", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRecentIncidents(t *testing.T) {
	ts, _, _ := setup(t)

	resp, err := http.Get(ts.URL + "/api/incidents/recent?limit=2")
	require.NoError(t, err)
	var rows []*models.EnrichedIncident
	decode(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "INC-000003", rows[0].Incident.IncidentID)

	resp, err = http.Get(ts.URL + "/api/incidents/recent?limit=abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetIncident(t *testing.T) {
	ts, _, _ := setup(t)

	resp, err := http.Get(ts.URL + "/api/incidents/INC-000002")
	require.NoError(t, err)
	var row models.EnrichedIncident
	decode(t, resp, &row)
	assert.Equal(t, models.AttackDDoS, row.Incident.AttackType)

	resp, err = http.Get(ts.URL + "/api/incidents/INC-404404")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestIncidentReport(t *testing.T) {
	ts, _, _ := setup(t)

	resp, err := http.Get(ts.URL + "/api/incidents/INC-000001/report")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/markdown"))
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	md := string(raw)
	assert.Contains(t, md, "INC-000001")
	assert.Contains(t, md, "SQLInjection")
	assert.Contains(t, md, "INC-000002")
	assert.Contains(t, md, "INC-000003")

	resp, err = http.Get(ts.URL + "/api/incidents/INC-000001/report?format=json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var rep report.Report
	decode(t, resp, &rep)
	assert.Equal(t, "RPT-INC-000001-1785578400000", rep.Metadata.ReportID)
	assert.Len(t, rep.RelatedIncidents, 2)

	resp, err = http.Get(ts.URL + "/api/incidents/INC-000001/report?format=pdf")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := setup(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListIncidentsFilters(t *testing.T) {
	ts, _, _ := setup(t)

	resp, err := http.Get(ts.URL + "/api/incidents?attackType=SQLInjection")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var page store.Page
	decode(t, resp, &page)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Incidents, 2)
	assert.Equal(t, "INC-000003", page.Incidents[0].Incident.IncidentID)

	resp, err = http.Get(ts.URL + "/api/incidents?search=198.51&limit=1&page=1")
	require.NoError(t, err)
	page = store.Page{}
	decode(t, resp, &page)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.Limit)

	resp, err = http.Get(ts.URL + "/api/incidents?page=2&limit=2")
	require.NoError(t, err)
	page = store.Page{}
	decode(t, resp, &page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Incidents, 1)
	assert.True(t, page.HasPrevPage)

	resp, err = http.Get(ts.URL + "/api/incidents?severity=Severe")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDashboardStats(t *testing.T) {
	ts, _, _ := setup(t)

	resp, err := http.Get(ts.URL + "/api/dashboard/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var sum store.Summary
	decode(t, resp, &sum)
	assert.Equal(t, 3, sum.TotalIncidents)
	assert.Equal(t, 3, sum.IncidentsLast24Hours)
	assert.Equal(t, 1, sum.SeverityBreakdown["Critical"])
	assert.Equal(t, 2, sum.AttackTypeBreakdown["SQLInjection"])
	assert.Equal(t, 3, sum.StatusBreakdown["Open"])
	require.NotEmpty(t, sum.TopAttackingIPs)
	assert.Equal(t, store.SourceCount{SourceIP: "10.0.0.50", Count: 2}, sum.TopAttackingIPs[0])
}

func TestUpdateIncidentStatus(t *testing.T) {
	ts, _, st := setup(t)

	patch := func(id, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/incidents/"+id+"/status", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := patch("INC-000002", `{"status":"Resolved"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var row models.EnrichedIncident
	decode(t, resp, &row)
	assert.Equal(t, models.StatusResolved, row.Incident.Status)
	require.NotNil(t, row.ResolvedAt)

	got, err := st.Get(context.Background(), "INC-000002")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Incident.Status)

	resp = patch("INC-000002", `{"status":"Escalated"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = patch("INC-404404", `{"status":"Closed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
