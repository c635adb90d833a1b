// Package metrics exposes Prometheus collectors for the driver.
//
// Every method is safe on a nil *Collector so packages can run without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trio"

type Collector struct {
	deviceRequests   *prometheus.CounterVec
	deviceLatency    *prometheus.HistogramVec
	gateWait         prometheus.Histogram
	dialResolutions  *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
	snapshotFailures prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "device",
			Name:      "requests_total",
			Help:      "Device API requests by path and outcome.",
		}, []string{"path", "outcome"}),
		deviceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "device",
			Name:      "request_duration_seconds",
			Help:      "Device API round trip time, excluding time spent waiting for the gate.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		gateWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "device",
			Name:      "gate_wait_seconds",
			Help:      "Time spent waiting for the device request gate.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
		}),
		dialResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "dial_resolutions_total",
			Help:      "Dial attempts by whether the call handle could be resolved.",
		}, []string{"result"}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "state_transitions_total",
			Help:      "Perceived call state transitions.",
		}, []string{"from", "to"}),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Time to assemble one statistics snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		snapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "failures_total",
			Help:      "Snapshots aborted by a failing device request.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.deviceRequests,
			c.deviceLatency,
			c.gateWait,
			c.dialResolutions,
			c.stateTransitions,
			c.snapshotDuration,
			c.snapshotFailures,
		)
	}
	return c
}

func (c *Collector) ObserveRequest(path, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.deviceRequests.WithLabelValues(path, outcome).Inc()
	c.deviceLatency.WithLabelValues(path).Observe(d.Seconds())
}

func (c *Collector) ObserveGateWait(d time.Duration) {
	if c == nil {
		return
	}
	c.gateWait.Observe(d.Seconds())
}

// DialResolved counts a dial; matched is false when the call handle stayed unknown.
func (c *Collector) DialResolved(matched bool) {
	if c == nil {
		return
	}
	result := "unknown"
	if matched {
		result = "matched"
	}
	c.dialResolutions.WithLabelValues(result).Inc()
}

func (c *Collector) StateTransition(from, to string) {
	if c == nil {
		return
	}
	c.stateTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) ObserveSnapshot(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.snapshotDuration.Observe(d.Seconds())
	if err != nil {
		c.snapshotFailures.Inc()
	}
}
