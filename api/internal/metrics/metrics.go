package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for Identifications.
const (
	OutcomeSuccess    = "success"
	OutcomeModelError = "model_error"
	OutcomeOversize   = "oversize"
	OutcomeFailure    = "failure"
)

type Metrics struct {
	reg *prometheus.Registry

	Identifications *prometheus.CounterVec
	ModelLatency    *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
}

// New registers collectors on a private registry so tests can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Identifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_identifications_total",
			Help: "Hazard identification requests by outcome",
		}, []string{"outcome"}),
		ModelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hazard_model_call_seconds",
			Help:    "Latency of the remote model call",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"engine"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveIdentification is nil-safe so callers can run without metrics.
func (m *Metrics) ObserveIdentification(outcome string) {
	if m == nil {
		return
	}
	m.Identifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveModelCall(engine string, seconds float64) {
	if m == nil {
		return
	}
	m.ModelLatency.WithLabelValues(engine).Observe(seconds)
}

func (m *Metrics) ObserveHTTP(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
