// Package telemetry exposes prometheus counters for the reconciliation
// loops. Counters register on the default registry so an embedding
// process can expose them however it serves metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssignmentsTotal counts assignment outcomes: assigned, created, failed.
	AssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_assignments_total",
		Help: "Assignment pipeline outcomes.",
	}, []string{"outcome"})

	// LifecycleTransitionsTotal counts lifecycle decay transitions by target state.
	LifecycleTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_lifecycle_transitions_total",
		Help: "Time-driven thread state transitions.",
	}, []string{"to"})

	// MergesTotal counts executed merges.
	MergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_merges_total",
		Help: "Duplicate thread merges executed.",
	})

	// RevivalsTotal counts revival links established.
	RevivalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_revivals_total",
		Help: "Archived threads revived by a new thread.",
	})

	// ProviderFallbacksTotal counts AI provider calls that degraded to the heuristic.
	ProviderFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_provider_fallbacks_total",
		Help: "Decision provider failures that fell back to the heuristic.",
	}, []string{"op"})
)
