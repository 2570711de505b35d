package incidentjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"socsim/internal/logger"
	"socsim/pkg/models"
)

// Config configures the JSONL incident writer.
type Config struct {
	Path string
	// Append keeps existing lines instead of truncating the file.
	Append bool
}

// Writer outputs enriched incidents to a JSON lines file.
type Writer struct {
	file    *os.File
	buf     *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewWriter creates a JSONL writer for incidents.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("incident output path is empty")
	}
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if cfg.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(cfg.Path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	logger.Infof("Incident JSON writer initialized: %s", cfg.Path)
	buf := bufio.NewWriter(f)
	return &Writer{file: f, buf: buf, encoder: json.NewEncoder(buf)}, nil
}

// WriteIncidents writes a batch and flushes it to disk.
func (w *Writer) WriteIncidents(rows []*models.EnrichedIncident) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, row := range rows {
		if err := w.encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode incident: %w", err)
		}
	}
	return w.buf.Flush()
}

// Close flushes and closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}
