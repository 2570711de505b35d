package alerthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"socsim/pkg/models"
)

// Writer sends correlation alerts to a remote HTTP endpoint.
type Writer struct {
	url     string
	headers map[string]string
	timeout time.Duration
	client  *http.Client
}

// Config configures the HTTP writer.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

type envelope struct {
	Count  int             `json:"count"`
	Alerts []*models.Alert `json:"alerts"`
}

// NewWriter creates an HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http alert URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		url:     cfg.URL,
		headers: cfg.Headers,
		timeout: timeout,
		client:  &http.Client{},
	}, nil
}

// WriteAlerts posts a batch of alerts wrapped in a count envelope.
// Evidence is stripped to keep payloads small.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	slim := make([]*models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a == nil {
			continue
		}
		cp := *a
		cp.Evidence = nil
		slim = append(slim, &cp)
	}

	body, err := json.Marshal(envelope{Count: len(slim), Alerts: slim})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http request failed with status %s", resp.Status)
	}

	return nil
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
