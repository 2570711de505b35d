package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Socsim SocsimConfig `yaml:"socsim"`
}

// SocsimConfig is the project configuration.
type SocsimConfig struct {
	Stream    StreamConfig    `yaml:"stream"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Rules     RulesConfig     `yaml:"rules"`
	Store     StoreConfig     `yaml:"store"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	HTTP      HTTPConfig      `yaml:"http"`
	Feed      FeedConfig      `yaml:"feed"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StreamConfig controls the attack stream scheduler.
type StreamConfig struct {
	Pattern   string `yaml:"pattern" validate:"oneof=normal wave sustained calm"`
	AutoStart bool   `yaml:"auto_start"`
	// Seed makes generation reproducible when non-zero.
	Seed uint64 `yaml:"seed"`
}

// SimulatorConfig controls attack simulators.
type SimulatorConfig struct {
	Malware MalwareConfig `yaml:"malware"`
}

// MalwareConfig holds infected-system thresholds for malware severity.
type MalwareConfig struct {
	MediumAt   int `yaml:"medium_at" validate:"gte=1"`
	HighAt     int `yaml:"high_at" validate:"gte=1"`
	CriticalAt int `yaml:"critical_at" validate:"gte=1"`
}

// PipelineConfig controls pipeline behavior.
type PipelineConfig struct {
	Workers       int           `yaml:"workers" validate:"gte=1"`
	QueueSize     int           `yaml:"queue_size" validate:"gte=1"`
	BatchSize     int           `yaml:"batch_size" validate:"gte=1"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"gt=0"`
}

// RulesConfig controls Sigma rule tagging.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StoreConfig selects the incident store.
type StoreConfig struct {
	Mode     string           `yaml:"mode" validate:"oneof=memory redis"`
	Capacity int              `yaml:"capacity" validate:"gte=1"`
	Redis    RedisStoreConfig `yaml:"redis"`
}

// RedisStoreConfig controls the Redis incident store.
type RedisStoreConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	KeyPrefix    string        `yaml:"key_prefix"`
	MaxIncidents int64         `yaml:"max_incidents"`
	TTL          time.Duration `yaml:"ttl"`
}

// InputConfig controls the queue consumed by `socsim consume`.
type InputConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis list access.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
	MaxLen       int64         `yaml:"max_len"`
}

// OutputConfig controls the incident sink.
type OutputConfig struct {
	Mode       string                 `yaml:"mode" validate:"oneof=none file http clickhouse redis kafka nats"`
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
	Redis      RedisConfig            `yaml:"redis"`
	Kafka      KafkaOutputConfig      `yaml:"kafka"`
	NATS       NATSOutputConfig       `yaml:"nats"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path   string `yaml:"path"`
	Append bool   `yaml:"append"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url" validate:"omitempty,url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// KafkaOutputConfig config for the Kafka sink.
type KafkaOutputConfig struct {
	Brokers      []string      `yaml:"brokers" validate:"dive,hostname_port"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// NATSOutputConfig config for the NATS sink.
type NATSOutputConfig struct {
	URL          string        `yaml:"url"`
	Subject      string        `yaml:"subject"`
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

// AlertsConfig controls source-IP correlation alerts.
type AlertsConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Window    time.Duration     `yaml:"window"`
	Threshold int               `yaml:"threshold"`
	MaxRows   int               `yaml:"max_rows"`
	Cooldown  time.Duration     `yaml:"cooldown"`
	Output    AlertOutputConfig `yaml:"output"`
}

// AlertOutputConfig controls the alert sink.
type AlertOutputConfig struct {
	Mode string           `yaml:"mode" validate:"oneof=file http"`
	File FileOutputConfig `yaml:"file"`
	HTTP HTTPOutputConfig `yaml:"http"`
}

// HTTPConfig controls the control surface.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required"`
}

// FeedConfig controls the websocket feed.
type FeedConfig struct {
	SendBuffer   int           `yaml:"send_buffer"`
	PingInterval time.Duration `yaml:"ping_interval"`
	// PongTimeout must exceed PingInterval; shorter values become 2x PingInterval.
	PongTimeout  time.Duration `yaml:"pong_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"oneof=debug info warn warning error"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Socsim.Logging.Enabled = true
	cfg.Socsim.Logging.Console = true
	cfg.Socsim.HTTP.Enabled = true
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	s := &c.Socsim

	if s.Stream.Pattern == "" {
		s.Stream.Pattern = "normal"
	}

	if s.Simulator.Malware.MediumAt == 0 && s.Simulator.Malware.HighAt == 0 && s.Simulator.Malware.CriticalAt == 0 {
		s.Simulator.Malware = MalwareConfig{MediumAt: 6, HighAt: 16, CriticalAt: 36}
	}

	if s.Pipeline.Workers <= 0 {
		s.Pipeline.Workers = 4
	}
	if s.Pipeline.QueueSize <= 0 {
		s.Pipeline.QueueSize = 256
	}
	if s.Pipeline.BatchSize <= 0 {
		s.Pipeline.BatchSize = 100
	}
	if s.Pipeline.FlushInterval <= 0 {
		s.Pipeline.FlushInterval = 2 * time.Second
	}

	if s.Store.Mode == "" {
		s.Store.Mode = "memory"
	}
	if s.Store.Capacity <= 0 {
		s.Store.Capacity = 1000
	}
	if s.Store.Redis.Addr == "" {
		s.Store.Redis.Addr = "127.0.0.1:6379"
	}
	if s.Store.Redis.KeyPrefix == "" {
		s.Store.Redis.KeyPrefix = "socsim:incidents"
	}

	if s.Input.Redis.Addr == "" {
		s.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if s.Input.Redis.Key == "" {
		s.Input.Redis.Key = "socsim:incidents:queue"
	}
	if s.Input.Redis.BlockTimeout <= 0 {
		s.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if s.Output.Mode == "" {
		s.Output.Mode = "file"
	}
	if s.Output.File.Path == "" {
		s.Output.File.Path = "output/incidents.jsonl"
	}
	if s.Output.ClickHouse.Database == "" {
		s.Output.ClickHouse.Database = "socsim"
	}
	if s.Output.ClickHouse.Table == "" {
		s.Output.ClickHouse.Table = "incidents"
	}
	if s.Output.Redis.Addr == "" {
		s.Output.Redis.Addr = "127.0.0.1:6379"
	}
	if s.Output.Redis.Key == "" {
		s.Output.Redis.Key = "socsim:incidents:queue"
	}
	if s.Output.Kafka.Topic == "" {
		s.Output.Kafka.Topic = "socsim.incidents"
	}
	if s.Output.NATS.Subject == "" {
		s.Output.NATS.Subject = "socsim.incidents"
	}

	if s.Alerts.Window <= 0 {
		s.Alerts.Window = 5 * time.Minute
	}
	if s.Alerts.Threshold <= 0 {
		s.Alerts.Threshold = 8
	}
	if s.Alerts.MaxRows <= 0 {
		s.Alerts.MaxRows = 50
	}
	if s.Alerts.Cooldown <= 0 {
		s.Alerts.Cooldown = 2 * time.Minute
	}
	if s.Alerts.Output.Mode == "" {
		s.Alerts.Output.Mode = "file"
	}
	if s.Alerts.Output.File.Path == "" {
		s.Alerts.Output.File.Path = "output/alerts.jsonl"
	}

	if s.HTTP.Addr == "" {
		s.HTTP.Addr = ":8080"
	}

	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
}

// Validate checks struct tags and cross-field constraints. Call after ApplyDefaults.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s := c.Socsim
	m := s.Simulator.Malware
	if !(m.MediumAt < m.HighAt && m.HighAt < m.CriticalAt) {
		return fmt.Errorf("invalid config: simulator.malware thresholds must ascend (got %d/%d/%d)", m.MediumAt, m.HighAt, m.CriticalAt)
	}

	switch s.Output.Mode {
	case "http":
		if s.Output.HTTP.URL == "" {
			return fmt.Errorf("invalid config: output.http.url is required for http mode")
		}
	case "clickhouse":
		if s.Output.ClickHouse.URL == "" {
			return fmt.Errorf("invalid config: output.clickhouse.url is required for clickhouse mode")
		}
	case "kafka":
		if len(s.Output.Kafka.Brokers) == 0 {
			return fmt.Errorf("invalid config: output.kafka.brokers is required for kafka mode")
		}
	}

	if s.Alerts.Enabled && s.Alerts.Output.Mode == "http" && s.Alerts.Output.HTTP.URL == "" {
		return fmt.Errorf("invalid config: alerts.output.http.url is required for http mode")
	}
	return nil
}
