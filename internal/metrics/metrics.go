package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vlan-traffic-simulator/internal/model"
)

type MetricName string

const (
	MetricDecisionsCounter           MetricName = "vlansim_decisions_total"
	MetricRejectedRequestsCounter    MetricName = "vlansim_rejected_requests_total"
	MetricRecorderErrorsCounter      MetricName = "vlansim_recorder_errors_total"
	MetricEvaluationDurationObserver MetricName = "vlansim_evaluation_duration_seconds"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	decisions      *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	recorderErrors *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

func New() *Metrics {
	host, _ := os.Hostname()
	constLabels := prometheus.Labels{"host": host}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        string(MetricDecisionsCounter),
				Help:        "Total number of decisions by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome", "inspector"}),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        string(MetricRejectedRequestsCounter),
				Help:        "Total number of requests rejected before evaluation",
				ConstLabels: constLabels,
			},
			[]string{"reason"}),
		recorderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        string(MetricRecorderErrorsCounter),
				Help:        "Total decision log write failures",
				ConstLabels: constLabels,
			},
			[]string{}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        string(MetricEvaluationDurationObserver),
				Help:        "Distribution of evaluation latencies",
				ConstLabels: constLabels,
				Buckets:     []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"source"}),
	}
	m.registry.MustRegister(
		m.decisions,
		m.rejected,
		m.recorderErrors,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveDecision(rec *model.DecisionRecord, source string, elapsed time.Duration) {
	if m == nil || rec == nil {
		return
	}
	m.decisions.WithLabelValues(string(rec.Outcome), rec.Inspector).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRecorderError() {
	if m == nil {
		return
	}
	m.recorderErrors.WithLabelValues().Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
