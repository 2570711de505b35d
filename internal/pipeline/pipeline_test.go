package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/internal/alerts"
	inputredis "socsim/internal/input/redis"
	"socsim/internal/metrics"
	"socsim/internal/store"
	"socsim/pkg/models"
)

type recordingWriter struct {
	mu       sync.Mutex
	rows     []*models.EnrichedIncident
	failures int
	calls    int
	closed   bool
}

func (w *recordingWriter) WriteIncidents(rows []*models.EnrichedIncident) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("sink unavailable")
	}
	w.rows = append(w.rows, rows...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (w *recordingAlerts) WriteAlerts(a []*models.Alert) error {
	w.mu.Lock()
	w.alerts = append(w.alerts, a...)
	w.mu.Unlock()
	return nil
}

func (w *recordingAlerts) Close() error { return nil }

func (w *recordingAlerts) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.alerts)
}

func ddos(n, rps int, ip string) *models.Incident {
	return &models.Incident{
		IncidentID: fmt.Sprintf("INC-%06d", n),
		AttackType: models.AttackDDoS,
		Severity:   models.SeverityCritical,
		Status:     models.StatusOpen,
		SourceIP:   ip,
		Timestamp:  time.Now().UTC(),
		Details:    models.DDoSDetails{TargetURL: "/api/login", AttackIntensity: rps, RequestsPerSecond: rps, Port: 443, DurationSeconds: 30},
	}
}

func gathered(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
	}
	return total
}

func TestEnricherAttachesScoreAndClassification(t *testing.T) {
	e := NewEnricher(nil, nil)
	row := e.Enrich(ddos(1, 6000, "8.8.8.8"))
	require.NotNil(t, row)
	assert.Equal(t, 76, row.Threat.Score)
	assert.Equal(t, models.SeverityCritical, row.Threat.Severity)
	assert.Equal(t, "T1499", row.Classification.MitreAttack.ID)
	assert.Nil(t, row.Tags)
	assert.False(t, row.EnrichedAt.IsZero())
	assert.Nil(t, e.Enrich(nil))
}

func TestDispatcherEnrichesStoresAndWrites(t *testing.T) {
	st, err := store.NewMemoryStore(10)
	require.NoError(t, err)
	writer := &recordingWriter{}
	alertOut := &recordingAlerts{}
	m := metrics.New()

	d := NewDispatcher(Config{Workers: 2, BatchSize: 3, FlushInterval: 20 * time.Millisecond},
		NewEnricher(nil, m), st, writer, alerts.NewScorer(alerts.Config{}), alertOut, m)

	var seen sync.Map
	d.AddListener(func(row *models.EnrichedIncident) {
		seen.Store(row.Incident.IncidentID, row.Threat.Score)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	for i := 1; i <= 5; i++ {
		d.Publish(ddos(i, 6000, fmt.Sprintf("10.0.0.%d", i)))
	}

	require.Eventually(t, func() bool { return writer.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return alertOut.count() == 5 }, 2*time.Second, 10*time.Millisecond)

	got, err := st.Get(context.Background(), "INC-000003")
	require.NoError(t, err)
	assert.NotEmpty(t, got.StoreID)
	score, ok := seen.Load("INC-000003")
	require.True(t, ok)
	assert.Equal(t, 76, score)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, d.Close())
	assert.True(t, writer.closed)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(Config{QueueSize: 2}, NewEnricher(nil, m), nil, nil, nil, nil, m)

	d.Publish(ddos(1, 200, "1.1.1.1"))
	d.Publish(ddos(2, 200, "1.1.1.1"))
	d.Publish(ddos(3, 200, "1.1.1.1"))
	d.Publish(nil)

	assert.Equal(t, 2, len(d.queue))
	assert.Equal(t, 1.0, gathered(t, m, "socsim_dispatch_dropped_total"))
}

func TestDispatcherFlushesQueuedIncidentsOnShutdown(t *testing.T) {
	st, err := store.NewMemoryStore(50)
	require.NoError(t, err)
	writer := &recordingWriter{}
	m := metrics.New()
	d := NewDispatcher(Config{Workers: 3, QueueSize: 64, BatchSize: 1000, FlushInterval: time.Hour},
		NewEnricher(nil, m), st, writer, nil, nil, m)

	for i := 1; i <= 20; i++ {
		d.Publish(ddos(i, 700, "3.3.3.3"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Run(ctx), context.Canceled)

	assert.Equal(t, 20, writer.count())
	assert.Equal(t, 20, st.Len())
	assert.Empty(t, d.queue)
}

func TestWriteLoopRetriesFailedFlush(t *testing.T) {
	m := metrics.New()
	writer := &recordingWriter{failures: 1}
	d := NewDispatcher(Config{Workers: 1, BatchSize: 1, FlushInterval: time.Hour, SinkName: "file"},
		NewEnricher(nil, m), nil, writer, nil, nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Publish(ddos(1, 300, "2.2.2.2"))
	require.Eventually(t, func() bool { return writer.count() == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1.0, gathered(t, m, "socsim_sink_write_errors_total"))
}

func TestQueuePipelineConsumesRedisList(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	for i := 1; i <= 3; i++ {
		raw, err := json.Marshal(ddos(i, 1200, "9.9.9.9"))
		require.NoError(t, err)
		mr.RPush(inputredis.DefaultKey, string(raw))
	}
	mr.RPush(inputredis.DefaultKey, `{"incidentId":"INC-000099","attackType":"BruteForce"}`)

	consumer := inputredis.NewConsumer(inputredis.Config{Addr: mr.Addr(), BlockTimeout: time.Second})
	writer := &recordingWriter{}
	p := NewQueuePipeline(consumer, NewEnricher(nil, nil), writer, nil, nil,
		Config{Workers: 2, BatchSize: 10, FlushInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return writer.count() == 3 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("queue pipeline did not stop")
	}
	require.NoError(t, p.Close())

	for _, row := range writer.rows {
		assert.Equal(t, models.AttackDDoS, row.Incident.AttackType)
		assert.Equal(t, models.SeverityCritical, row.Incident.Severity)
		assert.Equal(t, 1200, row.Incident.Details.(models.DDoSDetails).RequestsPerSecond)
	}
}
