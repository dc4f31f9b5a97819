package metrics

import (
	"net/http"

	"github.com/Fi44er/number_rent_bot/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "number_rent"

// Number lifecycle events.
const (
	EventSubmitted   = "submitted"
	EventClaimed     = "claimed"
	EventActivated   = "activated"
	EventFailed      = "failed"
	EventRejected    = "rejected"
	EventInvalidCode = "invalid_code"
	EventCanceled    = "canceled"
	EventPaid        = "paid"
	EventPurged      = "purged"
)

type Metrics struct {
	registry *prometheus.Registry

	NumberEvents  *prometheus.CounterVec
	CreditedTotal prometheus.Counter
	JobRuns       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NumberEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "number_events_total",
			Help:      "Number lifecycle transitions by event.",
		}, []string{"event"}),
		CreditedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credited_total",
			Help:      "Sum credited to owners for matured numbers.",
		}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduler job runs by job and result.",
		}, []string{"job", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.NumberEvents,
		m.CreditedTotal,
		m.JobRuns,
	)
	return m
}

func (m *Metrics) Event(event string) {
	m.NumberEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Credit(amount float64) {
	m.NumberEvents.WithLabelValues(EventPaid).Inc()
	m.CreditedTotal.Add(amount)
}

// JobResult records one scheduler run; err decides the result label.
func (m *Metrics) JobResult(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
}

func (m *Metrics) Handler(logger *utils.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      logger,
		ErrorHandling: promhttp.ContinueOnError,
	})
}
