package incidentnats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"socsim/internal/logger"
	"socsim/pkg/models"
)

// Config configures the NATS writer.
type Config struct {
	URL string
	// Subject prefix; incidents go to <subject>.<attack type>.
	Subject      string
	FlushTimeout time.Duration
}

type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Writer publishes incidents on per-attack-type NATS subjects.
type Writer struct {
	nc      conn
	subject string
	flush   time.Duration
}

// NewWriter connects to NATS.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("socsim"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	logger.Infof("NATS incident writer initialized: %s", cfg.URL)
	return newWriter(nc, cfg), nil
}

func newWriter(nc conn, cfg Config) *Writer {
	if strings.TrimSpace(cfg.Subject) == "" {
		cfg.Subject = "socsim.incidents"
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 2 * time.Second
	}
	return &Writer{nc: nc, subject: strings.TrimSuffix(cfg.Subject, "."), flush: cfg.FlushTimeout}
}

// Subject returns the subject an incident is published on.
func (w *Writer) Subject(inc *models.Incident) string {
	return w.subject + "." + strings.ToLower(string(inc.AttackType))
}

// WriteIncidents publishes every row and flushes once per batch.
func (w *Writer) WriteIncidents(rows []*models.EnrichedIncident) error {
	published := 0
	for _, row := range rows {
		if row == nil || row.Incident == nil {
			continue
		}
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal incident %s: %w", row.Incident.IncidentID, err)
		}
		if err := w.nc.Publish(w.Subject(row.Incident), data); err != nil {
			return fmt.Errorf("nats publish failed: %w", err)
		}
		published++
	}
	if published == 0 {
		return nil
	}
	if err := w.nc.FlushTimeout(w.flush); err != nil {
		return fmt.Errorf("nats flush failed: %w", err)
	}
	return nil
}

// Close drains the connection.
func (w *Writer) Close() error {
	w.nc.Close()
	return nil
}
