// Package metrics provides Prometheus metrics and uptime tallies for healthboard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthboard/internal/models"
)

// Poll outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Manager owns the dashboard's Prometheus collectors.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	polls          *prometheus.CounterVec
	pollDuration   *prometheus.HistogramVec
	targetUp       *prometheus.GaugeVec
	components     *prometheus.GaugeVec
	reconciles     *prometheus.CounterVec
	cycles         prometheus.Counter
	websocketConns prometheus.Gauge
	httpRequests   *prometheus.CounterVec

	uptime *UptimeTracker
}

// NewManager creates a metrics manager. Each manager registers on its own
// registry unless WithRegistry supplies one.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "healthboard",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		uptime:           NewUptimeTracker(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.polls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "polls_total",
		Help:      "Health polls by target and outcome",
	}, []string{"target", "outcome"})

	m.pollDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_duration_seconds",
		Help:      "Time from request start to parsed report",
		Buckets:   m.histogramBuckets,
	}, []string{"target"})

	m.targetUp = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "target_up",
		Help:      "1 when the last report of the target was UP",
	}, []string{"target"})

	m.components = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "target_components",
		Help:      "Number of components in the last report of the target",
	}, []string{"target"})

	m.reconciles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconciliations_total",
		Help:      "Board reconciliations by result (applied or stale)",
	}, []string{"result"})

	m.cycles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_cycles_total",
		Help:      "Poll cycles started",
	})

	m.websocketConns = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "websocket_clients",
		Help:      "Connected dashboard websocket clients",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
}

// ObserveCycle counts a started poll cycle.
func (m *Manager) ObserveCycle() {
	m.cycles.Inc()
}

// ObservePoll records one poll result and feeds the uptime tally.
func (m *Manager) ObservePoll(res models.PollResult) {
	outcome := OutcomeOK
	if res.Err != nil {
		outcome = OutcomeFailed
	}
	m.polls.WithLabelValues(res.Target, outcome).Inc()
	m.pollDuration.WithLabelValues(res.Target).Observe(res.Latency.Seconds())

	up := res.Report.Status.IsUp()
	if up {
		m.targetUp.WithLabelValues(res.Target).Set(1)
	} else {
		m.targetUp.WithLabelValues(res.Target).Set(0)
	}
	m.components.WithLabelValues(res.Target).Set(float64(len(res.Report.Components)))
	m.uptime.Record(res.Target, up, string(res.Report.Status), res.ObservedAt)
}

// ObserveReconcile counts a reconciliation, applied or dropped as stale.
func (m *Manager) ObserveReconcile(applied bool) {
	result := "applied"
	if !applied {
		result = "stale"
	}
	m.reconciles.WithLabelValues(result).Inc()
}

// ClientConnected and ClientDisconnected track websocket clients.
func (m *Manager) ClientConnected()    { m.websocketConns.Inc() }
func (m *Manager) ClientDisconnected() { m.websocketConns.Dec() }

// RecordHTTPRequest counts a served HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// Uptime returns the in-memory uptime tally.
func (m *Manager) Uptime() *UptimeTracker {
	return m.uptime
}

// Registry exposes the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
