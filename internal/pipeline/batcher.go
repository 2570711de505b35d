package pipeline

import (
	"context"
	"time"

	"socsim/internal/alerts"
	"socsim/internal/logger"
	"socsim/internal/metrics"
	"socsim/pkg/models"
)

// batcher buffers enriched incidents and flushes them to the sinks.
type batcher struct {
	writer        IncidentWriter
	sinkName      string
	scorer        *alerts.Scorer
	alertWriter   AlertWriter
	metrics       *metrics.Metrics
	batchSize     int
	flushInterval time.Duration
}

func (b *batcher) writeLoop(ctx context.Context, in <-chan *models.EnrichedIncident) {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	var batchRows []*models.EnrichedIncident
	var batchAlerts []*models.Alert

	flush := func() {
		if b.writer != nil && len(batchRows) > 0 {
			for {
				if err := b.writer.WriteIncidents(batchRows); err != nil {
					logger.Errorf("Failed to write incidents to %s: %v", b.sinkName, err)
					b.metrics.SinkError(b.sinkName)
					select {
					case <-ctx.Done():
						return
					case <-time.After(1 * time.Second):
					}
					continue
				}
				break
			}
		}
		batchRows = nil
		if b.alertWriter != nil && len(batchAlerts) > 0 {
			for {
				if err := b.alertWriter.WriteAlerts(batchAlerts); err != nil {
					logger.Errorf("Failed to write alerts: %v", err)
					b.metrics.SinkError("alerts")
					select {
					case <-ctx.Done():
						return
					case <-time.After(1 * time.Second):
					}
					continue
				}
				break
			}
		}
		batchAlerts = nil
	}

	// Runs until in is closed so rows queued before shutdown still flush.
	for {
		select {
		case <-ticker.C:
			flush()
		case row, ok := <-in:
			if !ok {
				flush()
				return
			}
			if row == nil {
				continue
			}
			batchRows = append(batchRows, row)
			if b.scorer != nil {
				alertsOut := b.scorer.Add([]*models.EnrichedIncident{row})
				if len(alertsOut) > 0 {
					b.metrics.AlertsRaised(len(alertsOut))
					for _, a := range alertsOut {
						logger.Warnf("Alert %s: source %s score %d across %d incidents", a.AlertID, a.SourceIP, a.Score, a.Counts.Incidents)
					}
					batchAlerts = append(batchAlerts, alertsOut...)
				}
			}
			if len(batchRows) >= b.batchSize {
				flush()
			}
		}
	}
}

func (b *batcher) close() {
	if b.alertWriter != nil {
		if err := b.alertWriter.Close(); err != nil {
			logger.Errorf("Failed to close alert writer: %v", err)
		}
	}
	if b.writer != nil {
		if err := b.writer.Close(); err != nil {
			logger.Errorf("Failed to close %s writer: %v", b.sinkName, err)
		}
	}
}
