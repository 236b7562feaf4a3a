// Package metrics provides Prometheus observability for the outreach engine.
// The allocation funnel (pool -> eligible -> selected) and the driver's run
// outcomes are the signals operators actually watch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the application.
var Registry = prometheus.NewRegistry()

// factory registers metrics to the custom Registry directly.
var factory = promauto.With(Registry)

// =============================================================================
// ALLOCATION FUNNEL
// =============================================================================

// CandidatesConsidered tracks pool size per allocation run.
var CandidatesConsidered = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "outreach",
	Name:      "candidates_considered",
	Help:      "Number of students in the candidate pool per allocation run",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
})

// CallsAllocated counts scheduled calls by priority bucket.
var CallsAllocated = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Name:      "calls_allocated_total",
	Help:      "Total outreach calls allocated, by priority",
}, []string{"priority"})

// CoolDownExclusions counts students excluded by the contact cool-down rule.
var CoolDownExclusions = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "outreach",
	Name:      "cooldown_exclusions_total",
	Help:      "Students excluded from allocation because of the contact cool-down",
})

// StudentsSkipped counts per-student scoring failures that were skipped.
// A rising rate means upstream data problems, not an engine fault.
var StudentsSkipped = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "outreach",
	Name:      "students_skipped_total",
	Help:      "Students skipped during allocation due to lookup or scoring failures",
})

// AllocationDurationSeconds tracks time to allocate one day's calls.
var AllocationDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "outreach",
	Name:      "allocation_duration_seconds",
	Help:      "Time taken to allocate calls for one target date",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// =============================================================================
// DRIVER RUNS
// =============================================================================

// RunsTotal counts scheduler driver runs by outcome.
var RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Name:      "runs_total",
	Help:      "Allocation runs by outcome (completed, failed)",
}, []string{"status"})

// CallsCompleted counts operator call completions, by derived call type.
var CallsCompleted = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "outreach",
	Name:      "calls_completed_total",
	Help:      "Scheduled calls marked completed, by call type",
}, []string{"call_type"})
