package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "requestbot"

// Metrics holds the bot's Prometheus collectors. A nil *Metrics is valid and
// records nothing, so packages can take it as an optional dependency.
type Metrics struct {
	Updates          *prometheus.CounterVec
	Handled          *prometheus.CounterVec
	HandlerLatency   *prometheus.HistogramVec
	RateLimited      prometheus.Counter
	RequestsCreated  prometheus.Counter
	StatusChanges    *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	PostsIngested    *prometheus.CounterVec
	IngestQueueDepth prometheus.Gauge
}

// New registers all collectors on reg. Passing nil uses a private registry,
// which keeps tests isolated from the global default.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received by kind.",
		}, []string{"kind"}),
		Handled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handled_total",
			Help:      "Handler invocations by handler and outcome.",
		}, []string{"handler", "outcome"}),
		HandlerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"handler"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limiter.",
		}),
		RequestsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Requests persisted from completed dialogues.",
		}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Request status transitions by target status.",
		}, []string{"to"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by kind and result.",
		}, []string{"kind", "result"}),
		PostsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_ingested_total",
			Help:      "Channel posts processed by result.",
		}, []string{"result"}),
		IngestQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_queue_depth",
			Help:      "Channel posts waiting for the ingestion loop.",
		}),
	}
}

// ObserveUpdate counts one inbound update of the given kind.
func (m *Metrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(kind).Inc()
}

// ObserveHandled records a handler outcome and its latency.
func (m *Metrics) ObserveHandled(handler, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if handler == "" {
		handler = "unknown"
	}
	m.Handled.WithLabelValues(handler, outcome).Inc()
	m.HandlerLatency.WithLabelValues(handler).Observe(took.Seconds())
}

// ObserveRateLimited counts an update dropped by the limiter.
func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// ObserveRequestCreated counts a stored request.
func (m *Metrics) ObserveRequestCreated() {
	if m == nil {
		return
	}
	m.RequestsCreated.Inc()
}

// ObserveStatusChange counts a transition into status to.
func (m *Metrics) ObserveStatusChange(to string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(to).Inc()
}

// ObserveNotification counts a notification attempt.
func (m *Metrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "fail"
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}

// ObservePost counts a processed channel post by result: "stored", "duplicate", "failed" or "dropped".
func (m *Metrics) ObservePost(result string) {
	if m == nil {
		return
	}
	m.PostsIngested.WithLabelValues(result).Inc()
}

// SetQueueDepth reports the ingestion queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.IngestQueueDepth.Set(float64(n))
}
