// Package metrics exposes Prometheus collectors for the inference hooks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector records hook latencies and outcomes on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	duration    *prometheus.HistogramVec
	total       *prometheus.CounterVec
	modelLoaded prometheus.Gauge
}

// NewCollector creates a collector with a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visionhook",
			Name:      "hook_duration_seconds",
			Help:      "Duration of inference hook calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"hook"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visionhook",
			Name:      "hook_total",
			Help:      "Total number of inference hook calls.",
		}, []string{"hook", "outcome"}),
		modelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "visionhook",
			Name:      "model_loaded",
			Help:      "1 once the model has been loaded.",
		}),
	}

	c.registry.MustRegister(c.duration, c.total, c.modelLoaded)

	return c
}

// Observe records one hook call.
func (c *Collector) Observe(hook string, elapsed time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}

	c.duration.WithLabelValues(hook).Observe(elapsed.Seconds())
	c.total.WithLabelValues(hook, outcome).Inc()
}

// SetModelLoaded flips the model_loaded gauge.
func (c *Collector) SetModelLoaded(loaded bool) {
	if loaded {
		c.modelLoaded.Set(1)
		return
	}
	c.modelLoaded.Set(0)
}

// Total returns the call counter for a hook and outcome.
func (c *Collector) Total(hook, outcome string) prometheus.Counter {
	return c.total.WithLabelValues(hook, outcome)
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
