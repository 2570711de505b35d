package incidentkafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"socsim/internal/logger"
	"socsim/pkg/models"
)

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer publishes enriched incidents to a Kafka topic keyed by source IP.
type Writer struct {
	writer  messageWriter
	timeout time.Duration
}

// NewWriter creates a Kafka writer.
func NewWriter(cfg Config) (*Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are empty")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "socsim.incidents"
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Errorf("kafka: "+msg, args...)
		}),
	}

	logger.Infof("Kafka incident writer initialized: brokers=%v topic=%s", cfg.Brokers, cfg.Topic)
	return &Writer{writer: w, timeout: cfg.WriteTimeout}, nil
}

// Messages converts rows into Kafka messages.
func Messages(rows []*models.EnrichedIncident) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Incident == nil {
			continue
		}
		value, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal incident %s: %w", row.Incident.IncidentID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(row.Incident.SourceIP),
			Value: value,
			Time:  row.Incident.Timestamp,
			Headers: []kafka.Header{
				{Key: "attack_type", Value: []byte(row.Incident.AttackType)},
				{Key: "severity", Value: []byte(row.Threat.Severity)},
			},
		})
	}
	return msgs, nil
}

// WriteIncidents publishes a batch.
func (w *Writer) WriteIncidents(rows []*models.EnrichedIncident) error {
	msgs, err := Messages(rows)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (w *Writer) Close() error {
	return w.writer.Close()
}
