// Package reconcile folds resolved enrichment output into one idempotent write-set.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"NewsMerger/internal/domain"
	"NewsMerger/internal/ports"
)

// Options configures a Reconciler.
type Options struct {
	EmbeddingDimension int
	Workers            int
}

// Result reports what an upload changed.
type Result struct {
	Inserted int
	Updated  int
	Summary  domain.StageSummary
}

// Reconciler writes enriched articles to the destination store keyed on source_url.
type Reconciler struct {
	store   ports.ArticleRepository
	dim     int
	workers int
	logger  *slog.Logger
}

// New constructs a Reconciler.
func New(store ports.ArticleRepository, opts Options, logger *slog.Logger) *Reconciler {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{store: store, dim: opts.EmbeddingDimension, workers: workers, logger: logger}
}

// Apply resolves overlaps, validates, checks embedding dimensions and upserts.
// A dimension mismatch or an unreachable store aborts before any write; single
// article failures are recorded and the rest proceed.
func (r *Reconciler) Apply(ctx context.Context, articles []domain.EnrichedArticle) (Result, error) {
	res := Result{Summary: domain.StageSummary{Stage: domain.StageUpload}}
	if r.store == nil {
		return res, fmt.Errorf("no destination store configured")
	}

	var keyed []domain.EnrichedArticle
	for _, a := range articles {
		if a.SourceURL == "" {
			res.Summary.Fail(a.URL, "missing source_url")
			continue
		}
		keyed = append(keyed, a)
	}

	writeSet, superseded := Resolve(keyed)
	res.Summary.Skipped = superseded

	valid := make([]domain.EnrichedArticle, 0, len(writeSet))
	for _, a := range writeSet {
		if reason := validate(a); reason != "" {
			res.Summary.Fail(a.SourceURL, reason)
			r.warn("article rejected", "url", a.SourceURL, "reason", reason)
			continue
		}
		valid = append(valid, a)
	}

	if err := r.checkDimensions(valid); err != nil {
		return res, err
	}

	if len(valid) > 0 {
		if err := r.store.Ping(ctx); err != nil {
			return res, fmt.Errorf("destination store unavailable: %w", err)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, a := range valid {
		g.Go(func() error {
			inserted, err := r.store.UpsertArticle(gctx, a)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.Summary.Fail(a.SourceURL, err.Error())
				r.warn("upsert failed", "url", a.SourceURL, "error", err)
			case inserted:
				res.Inserted++
			default:
				res.Updated++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("upload interrupted: %w", err)
	}

	res.Summary.Processed = res.Inserted + res.Updated
	sort.SliceStable(res.Summary.Failures, func(i, j int) bool {
		return res.Summary.Failures[i].URL < res.Summary.Failures[j].URL
	})

	r.info("upload finished",
		"inserted", res.Inserted,
		"updated", res.Updated,
		"failed", res.Summary.Failed,
		"superseded", superseded)
	return res, nil
}

// Resolve keeps one article per source_url: the higher status rank wins, then the
// later ProcessedAt, then the later input position. Output follows first appearance.
func Resolve(articles []domain.EnrichedArticle) ([]domain.EnrichedArticle, int) {
	index := make(map[string]int, len(articles))
	out := make([]domain.EnrichedArticle, 0, len(articles))
	superseded := 0

	for _, a := range articles {
		i, seen := index[a.SourceURL]
		if !seen {
			index[a.SourceURL] = len(out)
			out = append(out, a)
			continue
		}
		superseded++
		if prefer(a, out[i]) {
			out[i] = a
		}
	}
	return out, superseded
}

// prefer reports whether candidate replaces current; ties go to the later candidate.
func prefer(candidate, current domain.EnrichedArticle) bool {
	if cr, kr := candidate.ProcessingStatus.Rank(), current.ProcessingStatus.Rank(); cr != kr {
		return cr > kr
	}
	return !candidate.ProcessedAt.Before(current.ProcessedAt)
}

func validate(a domain.EnrichedArticle) string {
	switch {
	case a.ProcessingStatus == domain.StatusFailed:
		return "enrichment failed"
	case a.Title == "":
		return "missing title"
	case a.FullText == "":
		return "missing full_text"
	case a.ImportanceLevel != 0 && (a.ImportanceLevel < 1 || a.ImportanceLevel > 10):
		return fmt.Sprintf("importance_level %d outside 1..10", a.ImportanceLevel)
	}
	return ""
}

func (r *Reconciler) checkDimensions(articles []domain.EnrichedArticle) error {
	if r.dim <= 0 {
		return nil
	}
	for _, a := range articles {
		if n := len(a.SearchEmbedding); n != 0 && n != r.dim {
			return &domain.ConfigurationMismatchError{
				Field: "embedding dimension",
				Want:  r.dim,
				Got:   n,
				URL:   a.SourceURL,
			}
		}
	}
	return nil
}

func (r *Reconciler) info(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Info(msg, args...)
}

func (r *Reconciler) warn(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, args...)
}
