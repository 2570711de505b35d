package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"socsim/internal/alerts"
	"socsim/internal/logger"
	"socsim/pkg/models"
)

// Consumer pops raw incident payloads from a queue.
type Consumer interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// QueuePipeline consumes serialized incidents from a queue and writes
// enriched rows.
type QueuePipeline struct {
	consumer Consumer
	enricher *Enricher
	workers  int
	batch    *batcher
}

// NewQueuePipeline creates a pipeline for queued incidents.
func NewQueuePipeline(consumer Consumer, enricher *Enricher, writer IncidentWriter, scorer *alerts.Scorer, alertWriter AlertWriter, cfg Config) *QueuePipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.SinkName == "" {
		cfg.SinkName = "incidents"
	}
	return &QueuePipeline{
		consumer: consumer,
		enricher: enricher,
		workers:  cfg.Workers,
		batch: &batcher{
			writer:        writer,
			sinkName:      cfg.SinkName,
			scorer:        scorer,
			alertWriter:   alertWriter,
			metrics:       enricher.metrics,
			batchSize:     cfg.BatchSize,
			flushInterval: cfg.FlushInterval,
		},
	}
}

// Run starts the pipeline loop.
func (p *QueuePipeline) Run(ctx context.Context) error {
	logger.Infof("Queue pipeline started")

	msgCh := make(chan []byte, p.workers*4)
	workCh := make(chan *models.EnrichedIncident, p.workers*4)

	go func() {
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	var workers sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			p.workerLoop(msgCh, workCh)
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.batch.writeLoop(ctx, workCh)
	}()

	workers.Wait()
	close(workCh)
	<-done
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *QueuePipeline) Close() error {
	p.batch.close()
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

func (p *QueuePipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop queued incident: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if payload == nil {
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (p *QueuePipeline) workerLoop(in <-chan []byte, out chan<- *models.EnrichedIncident) {
	for payload := range in {
		var inc models.Incident
		if err := json.Unmarshal(payload, &inc); err != nil {
			logger.Warnf("Failed to parse queued incident: %v", err)
			continue
		}
		out <- p.enricher.Enrich(&inc)
	}
}
