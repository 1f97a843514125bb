// Package metrics exposes Prometheus instruments for pipeline stages.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"NewsMerger/internal/domain"
)

const namespace = "newsmerger"

// Metrics holds the pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	StageRuns         *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	Articles          *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	MissingBatches    prometheus.Gauge
	LastSuccess       *prometheus.GaugeVec
}

// New creates and registers all metrics on reg (default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		StageRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage executions by outcome",
		}, []string{"stage", "result"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a stage execution",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),
		Articles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles handled per stage by outcome",
		}, []string{"stage", "outcome"}),
		DuplicatesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Cross-source duplicates folded into a representative",
		}),
		MissingBatches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_batches",
			Help:      "Batches without an enrichment artifact at the last upload",
		}),
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful stage run",
		}, []string{"stage"}),
	}
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(summary domain.StageSummary, took time.Duration, err error) {
	if m == nil {
		return
	}
	stage := summary.Stage

	m.StageRuns.WithLabelValues(stage, result(summary, err)).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(took.Seconds())
	m.Articles.WithLabelValues(stage, "processed").Add(float64(summary.Processed))
	m.Articles.WithLabelValues(stage, "skipped").Add(float64(summary.Skipped))
	m.Articles.WithLabelValues(stage, "failed").Add(float64(summary.Failed))
	if stage == domain.StageUpload {
		m.MissingBatches.Set(float64(len(summary.Missing)))
	}
	if err == nil {
		m.LastSuccess.WithLabelValues(stage).SetToCurrentTime()
	}
}

// ObserveDedup records merge statistics.
func (m *Metrics) ObserveDedup(stats domain.DedupStats) {
	if m == nil {
		return
	}
	m.DuplicatesRemoved.Add(float64(stats.DuplicatesRemoved))
}

func result(summary domain.StageSummary, err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingPrerequisite):
		return "missing_prerequisite"
	case errors.Is(err, domain.ErrConfigurationMismatch):
		return "configuration_mismatch"
	case err != nil:
		return "error"
	case summary.Failed > 0 || len(summary.Missing) > 0:
		return "partial"
	default:
		return "ok"
	}
}
