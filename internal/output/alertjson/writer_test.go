package alertjson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsim/pkg/models"
)

func TestWriterAppendsAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts", "alerts.jsonl")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteAlerts([]*models.Alert{{AlertID: "ALR-1", SourceIP: "1.1.1.1"}, nil}))
	assert.Equal(t, 1, w.Written())
	require.NoError(t, w.Close())

	w, err = NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteAlerts([]*models.Alert{{AlertID: "ALR-2", SourceIP: "2.2.2.2"}}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"alert_id":"ALR-1"`)
	assert.Contains(t, lines[1], `"source_ip":"2.2.2.2"`)
}
