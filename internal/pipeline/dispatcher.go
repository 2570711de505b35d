package pipeline

import (
	"context"
	"sync"
	"time"

	"socsim/internal/alerts"
	"socsim/internal/logger"
	"socsim/internal/metrics"
	"socsim/internal/store"
	"socsim/pkg/models"
)

// Config sizes the dispatcher.
type Config struct {
	Workers       int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	SinkName      string
}

// Listener observes every enriched incident after it is stored.
type Listener func(row *models.EnrichedIncident)

// Dispatcher receives incidents from the stream, enriches and stores them,
// and batches them out to the configured sinks.
type Dispatcher struct {
	queue     chan *models.Incident
	enricher  *Enricher
	store     store.Store
	metrics   *metrics.Metrics
	workers   int
	batch     *batcher
	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates a dispatcher. writer, scorer, alertWriter and st may be nil.
func NewDispatcher(cfg Config, enricher *Enricher, st store.Store, writer IncidentWriter, scorer *alerts.Scorer, alertWriter AlertWriter, m *metrics.Metrics) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.SinkName == "" {
		cfg.SinkName = "incidents"
	}
	return &Dispatcher{
		queue:    make(chan *models.Incident, cfg.QueueSize),
		enricher: enricher,
		store:    st,
		metrics:  m,
		workers:  cfg.Workers,
		batch: &batcher{
			writer:        writer,
			sinkName:      cfg.SinkName,
			scorer:        scorer,
			alertWriter:   alertWriter,
			metrics:       m,
			batchSize:     cfg.BatchSize,
			flushInterval: cfg.FlushInterval,
		},
	}
}

// AddListener registers a callback invoked from worker goroutines.
func (d *Dispatcher) AddListener(fn Listener) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

// Publish enqueues an incident without blocking. When the queue is full
// the incident is dropped.
func (d *Dispatcher) Publish(inc *models.Incident) {
	if inc == nil {
		return
	}
	select {
	case d.queue <- inc:
	default:
		d.metrics.DispatchDropped()
		logger.Warnf("Dispatch queue full, dropping incident %s", inc.IncidentID)
	}
}

// Run processes queued incidents until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Infof("Incident dispatcher started (workers=%d)", d.workers)

	workCh := make(chan *models.EnrichedIncident, d.workers*4)

	var workers sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			d.workerLoop(ctx, workCh)
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.batch.writeLoop(ctx, workCh)
	}()

	<-ctx.Done()
	workers.Wait()
	close(workCh)
	<-done
	return ctx.Err()
}

// Close releases sink and store resources.
func (d *Dispatcher) Close() error {
	d.batch.close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// workerLoop sends on out without watching ctx; the write loop keeps
// reading until out is closed.
func (d *Dispatcher) workerLoop(ctx context.Context, out chan<- *models.EnrichedIncident) {
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx), out)
			return
		case inc := <-d.queue:
			if row := d.process(ctx, inc); row != nil {
				out <- row
			}
		}
	}
}

// drain processes whatever is still queued at shutdown.
func (d *Dispatcher) drain(ctx context.Context, out chan<- *models.EnrichedIncident) {
	for {
		select {
		case inc := <-d.queue:
			if row := d.process(ctx, inc); row != nil {
				out <- row
			}
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, inc *models.Incident) *models.EnrichedIncident {
	row := d.enricher.Enrich(inc)
	if row == nil {
		return nil
	}
	if d.store != nil {
		if _, err := d.store.Save(ctx, row); err != nil {
			logger.Errorf("Failed to store incident %s: %v", inc.IncidentID, err)
			d.metrics.SinkError("store")
		}
	}

	d.mu.RLock()
	listeners := d.listeners
	d.mu.RUnlock()
	for _, fn := range listeners {
		fn(row)
	}
	return row
}
