package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of a service. Each instance owns
// its registry so tests and multiple services do not collide.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	maxFactorSize *prometheus.HistogramVec
	networks      prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bayesnet_queries_total",
			Help: "Inference queries by algorithm and result",
		}, []string{"algorithm", "result"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bayesnet_query_duration_seconds",
			Help:    "Time to answer an inference query",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"algorithm"}),
		maxFactorSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bayesnet_max_factor_size",
			Help:    "Largest factor built while answering a query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"algorithm"}),
		networks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bayesnet_networks_loaded",
			Help: "Networks currently registered",
		}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeQuery(algorithm string, d time.Duration, maxFactor int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.queries.WithLabelValues(algorithm, result).Inc()
	if err != nil {
		return
	}
	m.queryDuration.WithLabelValues(algorithm).Observe(d.Seconds())
	if maxFactor > 0 {
		m.maxFactorSize.WithLabelValues(algorithm).Observe(float64(maxFactor))
	}
}

func (m *Metrics) setNetworks(n int) {
	if m == nil {
		return
	}
	m.networks.Set(float64(n))
}
