// Package metrics counts device round trips and node outcomes with
// Prometheus collectors. A Recorder owns its own registry, so several
// recorders can live in one process and tests never share state.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/newtcli/pkg/session"
)

const namespace = "newtcli"

// Round trip outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder holds the collectors for one CLI invocation.
type Recorder struct {
	registry   *prometheus.Registry
	roundTrips *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	nodes      *prometheus.CounterVec
}

// New creates a recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		roundTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "round_trips_total",
				Help:      "Round trips sent to devices, by outcome.",
			},
			[]string{"device", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "round_trip_seconds",
				Help:      "Round trip latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"device"},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_operations_total",
				Help:      "Nodes handled by the engine, by operation and status.",
			},
			[]string{"operation", "status"},
		),
	}
	r.registry.MustRegister(r.roundTrips, r.latency, r.nodes)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveNode counts one node outcome. It satisfies engine.Observer.
func (r *Recorder) ObserveNode(operation, status string) {
	r.nodes.WithLabelValues(operation, status).Inc()
}

// ObserveRoundTrip counts one round trip and its latency.
func (r *Recorder) ObserveRoundTrip(device string, d time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.roundTrips.WithLabelValues(device, outcome).Inc()
	r.latency.WithLabelValues(device).Observe(d.Seconds())
}

// WriteTextfile writes every metric in the text exposition format, for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// InstrumentChannel wraps ch so every round trip it carries is recorded
// against device. Place it below any cache so only real device traffic is
// counted.
func (r *Recorder) InstrumentChannel(device string, ch session.Channel) session.Channel {
	return session.ChannelFunc(func(ctx context.Context, lines []string, cacheable bool) (string, error) {
		start := time.Now()
		out, err := ch.Send(ctx, lines, cacheable)
		r.ObserveRoundTrip(device, time.Since(start), err)
		return out, err
	})
}
