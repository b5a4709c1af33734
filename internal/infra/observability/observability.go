// Package observability exposes the engine's Prometheus metrics:
// request counts and latency, cache effectiveness, refresh cycles,
// learning passes, and verification outcomes.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Prediction Metrics ─────────────────────────────────────────────────────

// PredictionsServed counts served predictions by draw type.
var PredictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "predict",
	Name:      "served_total",
	Help:      "Total predictions served, by draw type.",
}, []string{"draw_type"})

// PredictionLatency tracks end-to-end prediction latency.
var PredictionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "drawsense",
	Subsystem: "predict",
	Name:      "latency_seconds",
	Help:      "Prediction request latency in seconds.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
})

// PredictionCacheHits counts prediction cache lookups by outcome.
var PredictionCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "predict",
	Name:      "cache_lookups_total",
	Help:      "Prediction cache lookups by outcome (hit, miss).",
}, []string{"outcome"})

// EvaluationsServed counts grid evaluations.
var EvaluationsServed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "evaluate",
	Name:      "served_total",
	Help:      "Total played-set evaluations served.",
})

// ─── Draw Store Metrics ─────────────────────────────────────────────────────

// DrawsArchived tracks the archive size as last reported by a refresh.
var DrawsArchived = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "drawsense",
	Subsystem: "store",
	Name:      "draws_total",
	Help:      "Number of draws in the archive.",
})

// DrawCacheInvalidations counts draw cache invalidations.
var DrawCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "store",
	Name:      "cache_invalidations_total",
	Help:      "Total draw cache invalidations triggered by new data.",
})

// ─── Refresh Metrics ────────────────────────────────────────────────────────

// RefreshRuns counts refresh cycles by result.
var RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "refresh",
	Name:      "runs_total",
	Help:      "Total refresh cycles by result (ok, error, skipped).",
}, []string{"result"})

// RefreshNewDraws counts rows landed by refresh cycles.
var RefreshNewDraws = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "refresh",
	Name:      "new_draws_total",
	Help:      "Total new draws landed by refresh cycles.",
})

// RefreshDuration tracks refresh cycle duration.
var RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "drawsense",
	Subsystem: "refresh",
	Name:      "duration_seconds",
	Help:      "Refresh cycle duration in seconds.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
})

// ─── Brain Metrics ──────────────────────────────────────────────────────────

// LearnPasses counts learning passes by stream.
var LearnPasses = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "brain",
	Name:      "learn_passes_total",
	Help:      "Total learning passes, by stream.",
}, []string{"stream"})

// BrainAccuracy tracks the rolling global accuracy per stream.
var BrainAccuracy = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "drawsense",
	Subsystem: "brain",
	Name:      "global_accuracy",
	Help:      "Global prediction accuracy per stream (hits / possible).",
}, []string{"stream"})

// ─── Verification Metrics ───────────────────────────────────────────────────

// VerifiedPredictions counts predictions attributed to an actual draw.
var VerifiedPredictions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drawsense",
	Subsystem: "verify",
	Name:      "attributed_total",
	Help:      "Total prediction entries verified against a draw.",
})
