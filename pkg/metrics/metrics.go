package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	AssessmentsCreated  *prometheus.CounterVec
	ValidationsTotal    *prometheus.CounterVec
	ReferralTransitions *prometheus.CounterVec
	AppointmentsTotal   *prometheus.CounterVec
	MobileSyncRecords   *prometheus.CounterVec

	NotificationsTotal *prometheus.CounterVec

	CacheLookups *prometheus.CounterVec

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers every collector on a fresh registry, so tests and
// multiple servers in one process never collide on the global default.
func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		AssessmentsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "assessments_created_total",
			Help:      "Assessments created by source (web, mobile) and ML risk level.",
		}, []string{"source", "risk_level"}),

		ValidationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "validations_total",
			Help:      "Clinical validations by whether the clinician agreed with the ML level.",
		}, []string{"agrees_with_ml"}),

		ReferralTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "referral_transitions_total",
			Help:      "Referral actions by action and resulting status.",
		}, []string{"action", "status"}),

		AppointmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "appointments_total",
			Help:      "Appointment status changes by resulting status.",
		}, []string{"status"}),

		MobileSyncRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "mobile",
			Name:      "sync_records_total",
			Help:      "Records served to or received from mobile clients.",
		}, []string{"resource", "direction"}),

		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification attempts by channel, driver and outcome.",
		}, []string{"channel", "driver", "outcome"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Read-through cache lookups by result (hit, miss, error).",
		}, []string{"result"}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
