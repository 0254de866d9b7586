package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
)

const namespace = "wxdecode"

// Metrics holds the Prometheus collectors for the weather feed.
type Metrics struct {
	FetchTotal     *prometheus.CounterVec   // labels: kind={metar,taf}, outcome={success,error}
	FetchDuration  *prometheus.HistogramVec // labels: kind
	DecodedTokens  *prometheus.CounterVec   // labels: category
	Unrecognized   prometheus.Counter
	FeedState      prometheus.Gauge
	WebSocketConns prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Upstream report fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a fetch cycle in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		DecodedTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoded_tokens_total",
			Help:      "Decoded rows by category.",
		}, []string{"category"}),
		Unrecognized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecognized_tokens_total",
			Help:      "Tokens no rule matched.",
		}),
		FeedState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_state",
			Help:      "0 idle, 1 loading, 2 loaded, 3 error.",
		}),
		WebSocketConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchTotal,
		m.FetchDuration,
		m.DecodedTokens,
		m.Unrecognized,
		m.FeedState,
		m.WebSocketConns,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting registers with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}

// RecordFetch implements weather.Metrics.
func (m *Metrics) RecordFetch(kind decoder.Kind, outcome string, d time.Duration) {
	m.FetchTotal.WithLabelValues(string(kind), outcome).Inc()
	m.FetchDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// RecordDecoded implements weather.Metrics.
func (m *Metrics) RecordDecoded(tokens []decoder.DecodedToken) {
	for category, n := range decoder.CountByCategory(tokens) {
		m.DecodedTokens.WithLabelValues(category.String()).Add(float64(n))
		if category == decoder.Unrecognized {
			m.Unrecognized.Add(float64(n))
		}
	}
}

// SetFeedState implements weather.Metrics.
func (m *Metrics) SetFeedState(s weather.FeedState) {
	m.FeedState.Set(float64(s))
}

// ClientConnected and ClientDisconnected track the WebSocket hub.
func (m *Metrics) ClientConnected()    { m.WebSocketConns.Inc() }
func (m *Metrics) ClientDisconnected() { m.WebSocketConns.Dec() }
