package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Socsim.Stream.Pattern)
	assert.Equal(t, MalwareConfig{MediumAt: 6, HighAt: 16, CriticalAt: 36}, cfg.Socsim.Simulator.Malware)
	assert.Equal(t, "memory", cfg.Socsim.Store.Mode)
	assert.Equal(t, ":8080", cfg.Socsim.HTTP.Addr)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socsim.yml")
	raw := `
socsim:
  stream:
    pattern: wave
    auto_start: true
    seed: 42
  simulator:
    malware:
      medium_at: 3
      high_at: 10
      critical_at: 20
  pipeline:
    workers: 2
    flush_interval: 500ms
  output:
    mode: kafka
    kafka:
      brokers: ["localhost:9092"]
  alerts:
    enabled: true
    window: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	s := cfg.Socsim
	assert.Equal(t, "wave", s.Stream.Pattern)
	assert.True(t, s.Stream.AutoStart)
	assert.Equal(t, uint64(42), s.Stream.Seed)
	assert.Equal(t, 10, s.Simulator.Malware.HighAt)
	assert.Equal(t, 500*time.Millisecond, s.Pipeline.FlushInterval)
	assert.Equal(t, 256, s.Pipeline.QueueSize)
	assert.Equal(t, time.Minute, s.Alerts.Window)
	assert.Equal(t, 8, s.Alerts.Threshold)
	assert.Equal(t, "socsim.incidents", s.Output.Kafka.Topic)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown pattern":    func(c *Config) { c.Socsim.Stream.Pattern = "storm" },
		"unknown output":     func(c *Config) { c.Socsim.Output.Mode = "s3" },
		"unknown store":      func(c *Config) { c.Socsim.Store.Mode = "postgres" },
		"malware descending": func(c *Config) { c.Socsim.Simulator.Malware = MalwareConfig{MediumAt: 10, HighAt: 5, CriticalAt: 20} },
		"http without url":   func(c *Config) { c.Socsim.Output.Mode = "http" },
		"kafka no brokers":   func(c *Config) { c.Socsim.Output.Mode = "kafka" },
		"bad broker":         func(c *Config) { c.Socsim.Output.Kafka.Brokers = []string{"not a broker"} },
		"bad log level":      func(c *Config) { c.Socsim.Logging.Level = "verbose" },
		"alert http no url": func(c *Config) {
			c.Socsim.Alerts.Enabled = true
			c.Socsim.Alerts.Output.Mode = "http"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("socsim: [unterminated"))
	assert.Error(t, err)
}
