package incidentredis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	inputredis "socsim/internal/input/redis"
	"socsim/pkg/models"
)

// Config configures the Redis list writer.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// MaxLen caps the list length, 0 disables trimming.
	MaxLen int64
}

// Writer pushes raw incidents onto a Redis list for `socsim consume`.
type Writer struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewWriter connects to Redis and verifies the connection.
func NewWriter(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis sink: %w", err)
	}

	if cfg.Key == "" {
		cfg.Key = inputredis.DefaultKey
	}
	return &Writer{client: client, key: cfg.Key, maxLen: cfg.MaxLen}, nil
}

// WriteIncidents pushes each incident in one pipeline.
func (w *Writer) WriteIncidents(rows []*models.EnrichedIncident) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Incident == nil {
			continue
		}
		raw, err := json.Marshal(row.Incident)
		if err != nil {
			return fmt.Errorf("marshal incident %s: %w", row.Incident.IncidentID, err)
		}
		values = append(values, raw)
	}
	if len(values) == 0 {
		return nil
	}

	ctx := context.Background()
	pipe := w.client.Pipeline()
	pipe.RPush(ctx, w.key, values...)
	if w.maxLen > 0 {
		pipe.LTrim(ctx, w.key, -w.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push incidents to %s: %w", w.key, err)
	}
	return nil
}

// Close closes Redis resources.
func (w *Writer) Close() error {
	return w.client.Close()
}
