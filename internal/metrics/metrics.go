package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socsim/pkg/models"
)

const namespace = "socsim"

// Metrics holds the process collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsGenerated *prometheus.CounterVec
	threatScore     prometheus.Histogram
	streamRunning   prometheus.Gauge
	dispatchDropped prometheus.Counter
	sinkErrors      *prometheus.CounterVec
	feedClients     prometheus.Gauge
	alertsRaised    prometheus.Counter
}

// New registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		eventsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_generated_total",
			Help:      "Synthetic incidents generated by the stream.",
		}, []string{"attack_type", "severity"}),
		threatScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "threat_score",
			Help:      "Distribution of computed threat scores.",
			Buckets:   []float64{25, 50, 75, 100},
		}),
		streamRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_running",
			Help:      "1 while the attack stream is running.",
		}),
		dispatchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_dropped_total",
			Help:      "Incidents dropped because the dispatch queue was full.",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_write_errors_total",
			Help:      "Failed batch writes per sink.",
		}, []string{"sink"}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Connected live feed clients.",
		}),
		alertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Correlation alerts raised per source IP window.",
		}),
	}
	reg.MustRegister(
		m.eventsGenerated,
		m.threatScore,
		m.streamRunning,
		m.dispatchDropped,
		m.sinkErrors,
		m.feedClients,
		m.alertsRaised,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Publish counts a generated incident; it lets Metrics subscribe to the stream.
func (m *Metrics) Publish(inc *models.Incident) {
	if m == nil || inc == nil {
		return
	}
	m.eventsGenerated.WithLabelValues(string(inc.AttackType), string(inc.Severity)).Inc()
}

func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.threatScore.Observe(float64(score))
}

func (m *Metrics) SetStreamRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.streamRunning.Set(1)
		return
	}
	m.streamRunning.Set(0)
}

func (m *Metrics) DispatchDropped() {
	if m == nil {
		return
	}
	m.dispatchDropped.Inc()
}

func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) FeedClients(n int) {
	if m == nil {
		return
	}
	m.feedClients.Set(float64(n))
}

func (m *Metrics) AlertsRaised(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsRaised.Add(float64(n))
}
