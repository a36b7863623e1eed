// Package metrics exposes pipeline stage metrics in Prometheus format.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "helioscope"

// Recorder records per-stage latency and failures of estimation runs.
// It satisfies the pipeline's StageRecorder.
type Recorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry, including Go runtime collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each estimation stage.",
			Buckets:   []float64{.001, .005, .025, .1, .5, 1, 2.5, 5, 15, 30, 60},
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Number of estimation runs that failed in each stage.",
		}, []string{"stage"}),
	}
	r.registry.MustRegister(
		r.duration,
		r.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveStage records one stage execution.
func (r *Recorder) ObserveStage(stage string, elapsed time.Duration, err error) {
	r.duration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		r.failures.WithLabelValues(stage).Inc()
	}
}

// Handler serves the registry at /metrics.
func (r *Recorder) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}
