// Package metrics exports pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/avvvet/krishiseva/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "krishiseva"

// Request results.
const (
	ResultSuccess  = "success"
	ResultFallback = "fallback"
	ResultInvalid  = "invalid"
)

// Recorder holds the pipeline collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	stageOutcomes *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	requests      *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.stageOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_outcomes_total",
			Help:      "Stage outcomes by status and degradation reason",
		},
		[]string{"stage", "status", "reason"},
	)
	r.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Stage latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	r.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Questions handled by result",
		},
		[]string{"result"},
	)
	r.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Questions currently being answered",
		},
	)

	r.registry.MustRegister(r.stageOutcomes, r.stageLatency, r.requests, r.inFlight)
	return r
}

// ObserveStage records how a stage finished and how long it took.
// Safe on a nil Recorder.
func (r *Recorder) ObserveStage(note models.StageNote, took time.Duration) {
	if r == nil {
		return
	}
	r.stageOutcomes.WithLabelValues(note.Stage, string(note.Status), note.Reason).Inc()
	r.stageLatency.WithLabelValues(note.Stage).Observe(took.Seconds())
}

// RequestStarted increments the in-flight gauge and returns a func that
// records the result and decrements it.
func (r *Recorder) RequestStarted() func(result string) {
	if r == nil {
		return func(string) {}
	}
	r.inFlight.Inc()
	return func(result string) {
		r.inFlight.Dec()
		r.requests.WithLabelValues(result).Inc()
	}
}

// CountRequest records a request that never entered the pipeline.
func (r *Recorder) CountRequest(result string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
