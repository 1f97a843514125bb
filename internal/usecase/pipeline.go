package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsMerger/internal/artifact"
	"NewsMerger/internal/dedup"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/metrics"
	"NewsMerger/internal/normalize"
	"NewsMerger/internal/ports"
	"NewsMerger/internal/reconcile"
)

// PipelineDeps wires all driven adapters and core modules into the stage services.
type PipelineDeps struct {
	Source       ports.ArticleSource
	Artifacts    ports.ArtifactStore
	Normalizer   *normalize.Normalizer
	Deduplicator *dedup.Deduplicator
	Downloader   ports.Downloader
	Analyzer     ports.Analyzer
	Embedder     ports.Embedder
	Repository   ports.ArticleRepository
	Reconciler   *reconcile.Reconciler
	Notifier     ports.Notifier
	Metrics      *metrics.Metrics
	Logger       *slog.Logger

	// SourceOrder fixes the order scrape artifacts are unioned in.
	SourceOrder []domain.SourceName
	BatchCount  int
	EnrichDelay time.Duration
	Workers     int
	Now         func() time.Time
}

// Pipeline implements the stage-gated scrape, merge, enrich and upload workflow.
// Every stage reads its input through the artifact tracker and writes a new artifact.
type Pipeline struct {
	source       ports.ArticleSource
	artifacts    ports.ArtifactStore
	tracker      *artifact.Tracker
	normalizer   *normalize.Normalizer
	deduplicator *dedup.Deduplicator
	downloader   ports.Downloader
	analyzer     ports.Analyzer
	embedder     ports.Embedder
	repository   ports.ArticleRepository
	reconciler   *reconcile.Reconciler
	notifier     ports.Notifier
	metrics      *metrics.Metrics
	logger       *slog.Logger

	sourceOrder []domain.SourceName
	batchCount  int
	enrichDelay time.Duration
	workers     int
	now         func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:       deps.Source,
		artifacts:    deps.Artifacts,
		normalizer:   deps.Normalizer,
		deduplicator: deps.Deduplicator,
		downloader:   deps.Downloader,
		analyzer:     deps.Analyzer,
		embedder:     deps.Embedder,
		repository:   deps.Repository,
		reconciler:   deps.Reconciler,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		sourceOrder:  deps.SourceOrder,
		batchCount:   deps.BatchCount,
		enrichDelay:  deps.EnrichDelay,
		workers:      deps.Workers,
		now:          deps.Now,
	}
	if deps.Artifacts != nil {
		p.tracker = artifact.NewTracker(deps.Artifacts)
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(nil, deps.Logger)
	}
	if p.batchCount < 1 {
		p.batchCount = 4
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if len(p.sourceOrder) == 0 && p.source != nil {
		p.sourceOrder = p.source.Sources()
	}
	return p
}

// Tracker exposes artifact resolution to callers that only inspect state.
func (p *Pipeline) Tracker() *artifact.Tracker {
	return p.tracker
}

// BatchCount is the configured number of enrichment batches.
func (p *Pipeline) BatchCount() int {
	return p.batchCount
}

// RunReport collects the summaries of a full run.
type RunReport struct {
	StartedAt time.Time
	Summaries []domain.StageSummary
	Stats     domain.DedupStats
	Inserted  int
	Updated   int
	Err       error
}

// RunAll executes scrape, merge, enrich-all and upload in order, stopping at the first fatal error.
// The report is published through the notifier when one is configured.
func (p *Pipeline) RunAll(ctx context.Context) (RunReport, error) {
	report := RunReport{StartedAt: p.now()}

	err := func() error {
		scraped, err := p.Scrape(ctx)
		report.Summaries = append(report.Summaries, scraped.Summary)
		if err != nil {
			return err
		}

		merged, err := p.Merge(ctx)
		report.Summaries = append(report.Summaries, merged.Summary)
		if err != nil {
			return err
		}
		report.Stats = merged.Artifact.Stats

		enriched, err := p.EnrichAll(ctx)
		report.Summaries = append(report.Summaries, enriched.Summary)
		if err != nil {
			return err
		}

		uploaded, err := p.Upload(ctx)
		report.Summaries = append(report.Summaries, uploaded.Summary)
		report.Inserted, report.Updated = uploaded.Inserted, uploaded.Updated
		return err
	}()
	report.Err = err

	if p.notifier != nil {
		if nErr := p.notifier.PublishReport(ctx, FormatReport(report)); nErr != nil {
			p.warn("publish run report", "error", nErr)
		}
	}
	return report, err
}

// FormatReport renders a plain-text run report.
func FormatReport(r RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NewsMerger run %s\n", r.StartedAt.Format(time.RFC3339))
	for _, s := range r.Summaries {
		fmt.Fprintf(&b, "%s: processed %d, skipped %d, failed %d", s.Stage, s.Processed, s.Skipped, s.Failed)
		if len(s.Missing) > 0 {
			fmt.Fprintf(&b, ", missing batches %v", s.Missing)
		}
		b.WriteByte('\n')
	}
	if r.Stats.TotalInput > 0 {
		fmt.Fprintf(&b, "dedup: %d in, %d unique, %d duplicates removed\n",
			r.Stats.TotalInput, r.Stats.TotalUnique, r.Stats.DuplicatesRemoved)
	}
	if r.Inserted+r.Updated > 0 {
		fmt.Fprintf(&b, "store: %d inserted, %d updated\n", r.Inserted, r.Updated)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "error: %v\n", r.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) requireTracker() error {
	if p.tracker == nil {
		return fmt.Errorf("artifact store is not configured")
	}
	return nil
}

func (p *Pipeline) observe(summary domain.StageSummary, start time.Time, err error) {
	p.metrics.ObserveStage(summary, time.Since(start), err)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
