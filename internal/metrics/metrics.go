package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "bbms"

	subsystemSession  = "session"
	subsystemProvider = "provider"
	subsystemRegistry = "registry"
)

// Metrics collects the session manager metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	initiations    *prometheus.CounterVec
	pollOutcomes   *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	providerCalls  *prometheus.HistogramVec
	sweepEvictions prometheus.Counter
}

// New creates the metrics on their own registry, including the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemSession,
			Name:      "initiations_total",
			Help:      "Number of verification operations opened, by purpose.",
		}, []string{"purpose"}),
		pollOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemSession,
			Name:      "poll_outcomes_total",
			Help:      "Number of poll responses, by reported status.",
		}, []string{"status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemSession,
			Name:      "proof_decisions_total",
			Help:      "Number of proof decisions, by outcome.",
		}, []string{"outcome"}),
		providerCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemProvider,
			Name:      "call_duration_seconds",
			Help:      "The time (in seconds) it takes to call the identity provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call", "result"}),
		sweepEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemRegistry,
			Name:      "sweep_evictions_total",
			Help:      "Number of expired operations evicted by the sweep.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.initiations, m.pollOutcomes, m.decisions, m.providerCalls, m.sweepEvictions,
	)
	return m
}

func (m *Metrics) Initiated(purpose string) {
	if m == nil {
		return
	}
	m.initiations.WithLabelValues(purpose).Inc()
}

func (m *Metrics) Polled(status string) {
	if m == nil {
		return
	}
	m.pollOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) Decided(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// ProviderCall records the duration of one outbound provider call.
func (m *Metrics) ProviderCall(call, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(call, result).Observe(d.Seconds())
}

func (m *Metrics) Swept(evicted int) {
	if m == nil || evicted <= 0 {
		return
	}
	m.sweepEvictions.Add(float64(evicted))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
