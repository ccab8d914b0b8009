package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chesswatch"

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamRetries  *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	fenFallbacks     prometheus.Counter
	liveConnections  prometheus.Gauge
	livePushes       *prometheus.CounterVec
	archivedGames    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lichess", Name: "requests_total",
			Help: "Upstream Lichess requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "lichess", Name: "request_duration_seconds",
			Help:    "Latency of single upstream attempts.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		upstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lichess", Name: "retries_total",
			Help: "Upstream retries by operation and attempt number.",
		}, []string{"op", "attempt"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Cache lookups by payload kind and result.",
		}, []string{"kind", "result"}),
		fenFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fen_fallbacks_total",
			Help: "Game positions replaced by the starting board after a decode failure.",
		}),
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "livefeed", Name: "connections",
			Help: "Open live-feed WebSocket connections.",
		}),
		livePushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "livefeed", Name: "pushes_total",
			Help: "Messages pushed to live-feed clients by type.",
		}, []string{"type"}),
		archivedGames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "archive", Name: "games_total",
			Help: "Finished games written to the archive.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests, m.upstreamLatency, m.upstreamRetries,
		m.cacheLookups, m.fenFallbacks, m.liveConnections, m.livePushes, m.archivedGames,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func outcome(status int, err error) string {
	switch {
	case err != nil && status == 0:
		return "transport_error"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "ok"
	}
}

func (m *Metrics) ObserveRequest(op string, status int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(op, outcome(status, err)).Inc()
	m.upstreamLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRetry(op string, attempt int) {
	if m == nil {
		return
	}
	m.upstreamRetries.WithLabelValues(op, strconv.Itoa(attempt)).Inc()
}

func (m *Metrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) FENFallback() {
	if m == nil {
		return
	}
	m.fenFallbacks.Inc()
}

func (m *Metrics) LiveConnected() {
	if m == nil {
		return
	}
	m.liveConnections.Inc()
}

func (m *Metrics) LiveDisconnected() {
	if m == nil {
		return
	}
	m.liveConnections.Dec()
}

func (m *Metrics) LivePushed(msgType string) {
	if m == nil {
		return
	}
	m.livePushes.WithLabelValues(msgType).Inc()
}

func (m *Metrics) Archived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.archivedGames.Add(float64(n))
}
