package alertjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"socsim/internal/logger"
	"socsim/pkg/models"
)

// Writer appends correlation alerts to a JSON lines file.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
	written int
}

// NewWriter opens path for appending, creating parent directories.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("alert output path is empty")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open alert file: %w", err)
	}

	logger.Infof("Alert JSON writer initialized: %s", path)
	return &Writer{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// WriteAlerts writes a batch of alerts, one per line.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		if err := w.encoder.Encode(alert); err != nil {
			return fmt.Errorf("failed to encode alert %s: %w", alert.AlertID, err)
		}
		w.written++
	}
	return nil
}

// Written reports how many alerts were written.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
