package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsMerger/internal/domain"
)

// UploadResult reports the store changes of one upload.
type UploadResult struct {
	Refs     []domain.ArtifactRef
	Inserted int
	Updated  int
	Summary  domain.StageSummary
}

// Upload writes the resolved enrichment output to the destination store.
// A complete artifact is used alone when present; otherwise the newest artifact of each
// batch is unioned and missing batches are reported in the summary.
func (p *Pipeline) Upload(ctx context.Context) (res UploadResult, err error) {
	start := time.Now()
	res.Summary = domain.StageSummary{Stage: domain.StageUpload}
	defer func() { p.observe(res.Summary, start, err) }()

	if err := p.requireTracker(); err != nil {
		return res, err
	}

	resolution, err := p.tracker.ResolveEnriched(ctx, domain.StageUpload, p.batchCount)
	if err != nil {
		return res, err
	}
	for _, ref := range resolution.Stale {
		p.warn("skipping stale enrichment artifact",
			"artifact", ref.ID,
			"batch", ref.Batch,
			"total_batches", ref.TotalBatches,
			"merge", ref.MergeID)
	}
	if len(resolution.Missing) > 0 {
		p.warn("uploading without some batches", "missing", resolution.Missing)
	}

	res, err = p.upload(ctx, resolution.Refs())
	res.Summary.Missing = resolution.Missing
	return res, err
}

// UploadBatch writes only the newest usable artifact of one batch.
func (p *Pipeline) UploadBatch(ctx context.Context, number int) (res UploadResult, err error) {
	start := time.Now()
	res.Summary = domain.StageSummary{Stage: domain.StageUpload}
	defer func() { p.observe(res.Summary, start, err) }()

	if err := p.requireTracker(); err != nil {
		return res, err
	}
	if number < 1 || number > p.batchCount {
		return res, fmt.Errorf("batch %d out of range 1..%d", number, p.batchCount)
	}

	ref, err := p.tracker.ResolveBatch(ctx, domain.StageUpload, p.batchCount, number)
	if err != nil {
		return res, err
	}
	return p.upload(ctx, []domain.ArtifactRef{ref})
}

func (p *Pipeline) upload(ctx context.Context, refs []domain.ArtifactRef) (UploadResult, error) {
	res := UploadResult{Refs: refs, Summary: domain.StageSummary{Stage: domain.StageUpload}}
	if p.reconciler == nil {
		return res, fmt.Errorf("destination store is not configured")
	}

	var articles []domain.EnrichedArticle
	for _, ref := range refs {
		var payload domain.EnrichmentArtifact
		if err := p.tracker.Read(ctx, ref, &payload); err != nil {
			return res, err
		}
		p.debug("upload input", "artifact", ref.ID, "kind", ref.Kind, "batch", ref.Batch, "articles", len(payload.Articles))
		articles = append(articles, payload.Articles...)
	}

	applied, err := p.reconciler.Apply(ctx, articles)
	res.Inserted, res.Updated, res.Summary = applied.Inserted, applied.Updated, applied.Summary
	if err != nil {
		return res, err
	}
	return res, nil
}
