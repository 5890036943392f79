// Package metrics collects per-run verification metrics and exports them in
// the Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zkverify"

// Collector records dispatch outcomes on a private registry.
type Collector struct {
	registry       *prometheus.Registry
	outcomes       *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	runs           *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry, so repeated runs in
// one process never collide on registration.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "number of matrix cells by protocol, curve and outcome status",
		}, []string{"protocol", "curve", "status"}),
		submitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "submit_duration_seconds",
			Help:      "time from endorsement to commit status for submitted proofs",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"protocol", "curve"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "number of completed runs by result",
		}, []string{"result"}),
	}
}

// Outcome counts one matrix cell.
func (c *Collector) Outcome(protocol, curve, status string) {
	c.outcomes.WithLabelValues(protocol, curve, status).Inc()
}

// SubmitDuration observes how long a submission took.
func (c *Collector) SubmitDuration(protocol, curve string, d time.Duration) {
	c.submitDuration.WithLabelValues(protocol, curve).Observe(d.Seconds())
}

// RunFinished counts a run as "success" or "failure".
func (c *Collector) RunFinished(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.runs.WithLabelValues(result).Inc()
}

// WriteTextfile writes every collected metric to path, for pickup by a node
// exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// NoopCollector discards everything.
type NoopCollector struct{}

func (NoopCollector) Outcome(string, string, string)               {}
func (NoopCollector) SubmitDuration(string, string, time.Duration) {}
