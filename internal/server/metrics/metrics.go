// Package metrics exposes Prometheus counters for authentication outcomes
// and rate limiter decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vulntracker"

// Metrics держит собственный registry, чтобы тесты и несколько экземпляров
// не конфликтовали в глобальном DefaultRegisterer
type Metrics struct {
	registry   *prometheus.Registry
	authEvents *prometheus.CounterVec
	decisions  *prometheus.CounterVec
}

// New creates metrics registered in a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication operations by outcome.",
		}, []string{"operation", "result"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions by endpoint.",
		}, []string{"endpoint", "result"}),
	}

	m.registry.MustRegister(
		m.authEvents,
		m.decisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// AuthEvent реализует session.EventRecorder
func (m *Metrics) AuthEvent(operation, result string) {
	m.authEvents.WithLabelValues(operation, result).Inc()
}

// RateLimitDecision учитывает решение лимитера
func (m *Metrics) RateLimitDecision(endpoint string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	m.decisions.WithLabelValues(endpoint, result).Inc()
}

// TrackLimiterSize регистрирует gauge с числом живых записей лимитера.
// size вызывается при каждом scrape.
func (m *Metrics) TrackLimiterSize(size func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "entries",
		Help:      "Number of tracked rate limit windows.",
	}, func() float64 {
		return float64(size())
	}))
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдает метрики в текстовом формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
