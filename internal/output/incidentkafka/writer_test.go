package incidentkafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func row() *models.EnrichedIncident {
	return &models.EnrichedIncident{
		Incident: &models.Incident{
			IncidentID: "INC-000010",
			AttackType: models.AttackDDoS,
			SourceIP:   "172.16.0.1",
			Timestamp:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			Details:    models.DDoSDetails{RequestsPerSecond: 700},
		},
		Threat: models.ThreatAssessment{Severity: models.SeverityHigh},
	}
}

func TestMessagesKeyedBySource(t *testing.T) {
	msgs, err := Messages([]*models.EnrichedIncident{row(), nil})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "172.16.0.1", string(msgs[0].Key))
	assert.Equal(t, "DDoS", string(msgs[0].Headers[0].Value))
	assert.Equal(t, "High", string(msgs[0].Headers[1].Value))
	assert.Contains(t, string(msgs[0].Value), `"incidentId":"INC-000010"`)
}

func TestWriteIncidents(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, timeout: time.Second}
	require.NoError(t, w.WriteIncidents([]*models.EnrichedIncident{row()}))
	assert.Len(t, fw.msgs, 1)

	fw.err = errors.New("leader not available")
	assert.ErrorContains(t, w.WriteIncidents([]*models.EnrichedIncident{row()}), "leader not available")
	assert.NoError(t, w.WriteIncidents(nil))
}

func TestNewWriterRequiresBrokers(t *testing.T) {
	_, err := NewWriter(Config{})
	assert.Error(t, err)

	w, err := NewWriter(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, "socsim.incidents", w.writer.(*kafka.Writer).Topic)
}
