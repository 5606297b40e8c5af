// Package metrics exposes prometheus instrumentation for the attractor
// service. All collectors are registered on the default registry and served
// by the HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts sample-loop ticks that computed a force.
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attractor_ticks_total",
			Help: "Sample-loop ticks that computed a force",
		},
	)

	// SkippedTicksTotal counts ticks skipped for lack of fresh state.
	SkippedTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attractor_skipped_ticks_total",
			Help: "Ticks skipped by reason (no_state, stale)",
		},
		[]string{"reason"},
	)

	// NumericalFailuresTotal counts ticks aborted by non-finite values.
	NumericalFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attractor_numerical_failures_total",
			Help: "Ticks aborted by a non-finite projection or force",
		},
	)

	// PublishedForcesTotal counts force commands handed to the sink.
	PublishedForcesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attractor_published_forces_total",
			Help: "Force commands handed to the output sink",
		},
	)

	// ParameterUpdatesTotal counts configuration updates by status.
	ParameterUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attractor_parameter_updates_total",
			Help: "Configuration updates by status (applied, rejected)",
		},
		[]string{"status"},
	)

	// LoopState reports the sample-loop state (0=idle, 1=running, 2=stopped).
	LoopState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "attractor_loop_state",
			Help: "Sample-loop state (0=idle, 1=running, 2=stopped)",
		},
	)
)
