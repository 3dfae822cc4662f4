package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailer"

// Metrics holds the dispatch engine collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	// DispatchTotal counts dispatch calls.
	// Labels:
	// - mode:    "full", "batch" or "test"
	// - outcome: "ok", "rejected" or "error"
	DispatchTotal *prometheus.CounterVec

	// RecipientsTotal counts per-recipient outcomes.
	// Labels:
	// - outcome: "queued", "invalid", "bounce_risk" or "insert_failed"
	RecipientsTotal *prometheus.CounterVec

	// QuotaRejectionsTotal counts calls stopped by the quota gate.
	QuotaRejectionsTotal *prometheus.CounterVec

	DispatchDuration *prometheus.HistogramVec

	// DeliveriesTotal counts worker send attempts by result.
	DeliveriesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "calls_total",
				Help:      "Number of dispatch calls by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		RecipientsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "recipients_total",
				Help:      "Number of recipients processed by outcome",
			},
			[]string{"outcome"},
		),
		QuotaRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "quota_rejections_total",
				Help:      "Number of dispatch calls rejected by the quota gate",
			},
			[]string{"mode"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Duration of dispatch calls",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "deliveries_total",
				Help:      "Number of transport send attempts by result",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.DispatchTotal,
		m.RecipientsTotal,
		m.QuotaRejectionsTotal,
		m.DispatchDuration,
		m.DeliveriesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncDispatch(mode, outcome string) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) AddRecipients(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecipientsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) IncQuotaRejection(mode string) {
	if m == nil {
		return
	}
	m.QuotaRejectionsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveDispatch(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.DispatchDuration.WithLabelValues(mode).Observe(seconds)
}

func (m *Metrics) IncDelivery(result string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(result).Inc()
}
