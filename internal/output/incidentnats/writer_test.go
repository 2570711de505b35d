package incidentnats

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

type fakeConn struct {
	subjects []string
	flushes  int
	err      error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error {
	f.flushes++
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func rowOf(kind models.AttackType) *models.EnrichedIncident {
	return &models.EnrichedIncident{Incident: &models.Incident{IncidentID: "INC-000001", AttackType: kind}}
}

func TestWriterPublishesPerType(t *testing.T) {
	fc := &fakeConn{}
	w := newWriter(fc, Config{Subject: "soc.events."})

	require.NoError(t, w.WriteIncidents([]*models.EnrichedIncident{rowOf(models.AttackSQLInjection), nil, rowOf(models.AttackDDoS)}))
	assert.Equal(t, []string{"soc.events.sqlinjection", "soc.events.ddos"}, fc.subjects)
	assert.Equal(t, 1, fc.flushes)

	require.NoError(t, w.WriteIncidents(nil))
	assert.Equal(t, 1, fc.flushes)

	require.NoError(t, w.Close())
	assert.True(t, fc.closed)
}

func TestWriterPublishError(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	w := newWriter(fc, Config{})
	assert.ErrorContains(t, w.WriteIncidents([]*models.EnrichedIncident{rowOf(models.AttackXSS)}), "connection closed")
	assert.Equal(t, "socsim.incidents.xss", w.Subject(rowOf(models.AttackXSS).Incident))
}
