package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsMerger/internal/domain"
)

// MergeResult is the deduplicated set and where it was stored.
type MergeResult struct {
	Ref      domain.ArtifactRef
	Artifact domain.MergeArtifact
	Summary  domain.StageSummary
}

// Merge unions the latest scrape artifact of every source, normalizes and deduplicates them.
// The output depends only on those artifacts, so re-running on unchanged input reproduces it.
func (p *Pipeline) Merge(ctx context.Context) (res MergeResult, err error) {
	start := time.Now()
	res.Summary = domain.StageSummary{Stage: domain.StageMerge}
	defer func() { p.observe(res.Summary, start, err) }()

	if err := p.requireTracker(); err != nil {
		return res, err
	}
	if p.deduplicator == nil {
		return res, fmt.Errorf("deduplicator is not configured")
	}

	refs, err := p.tracker.LatestScrapes(ctx, domain.StageMerge, p.sourceOrder)
	if err != nil {
		return res, err
	}

	var (
		records []domain.RawRecord
		sources []domain.SourceName
		ids     []string
	)
	for _, ref := range refs {
		var scrape domain.ScrapeArtifact
		if err := p.tracker.Read(ctx, ref, &scrape); err != nil {
			return res, err
		}
		for i := range scrape.Records {
			if scrape.Records[i].Source == "" {
				scrape.Records[i].Source = ref.Source
			}
		}
		records = append(records, scrape.Records...)
		sources = append(sources, ref.Source)
		ids = append(ids, ref.ID)
	}

	normalized := p.normalizer.Normalize(records)
	deduped, err := p.deduplicator.Deduplicate(ctx, normalized.Articles)
	if err != nil {
		return res, fmt.Errorf("deduplicate: %w", err)
	}

	res.Artifact = domain.MergeArtifact{
		Articles:  deduped.Articles,
		Stats:     deduped.Stats,
		Sources:   sources,
		ScrapeIDs: ids,
		Rejected:  normalized.Rejected,
	}
	if res.Artifact.Articles == nil {
		res.Artifact.Articles = []domain.DeduplicatedArticle{}
	}

	res.Ref, err = p.artifacts.Write(ctx, domain.ArtifactRef{Kind: domain.KindMerge}, res.Artifact)
	if err != nil {
		return res, fmt.Errorf("store merge: %w", err)
	}

	res.Summary.Processed = deduped.Stats.TotalUnique
	res.Summary.Skipped = deduped.Stats.DuplicatesRemoved
	for _, r := range normalized.Rejected {
		res.Summary.Fail(r.URL, r.Reason)
	}
	p.metrics.ObserveDedup(deduped.Stats)

	p.info("merge finished",
		"sources", len(sources),
		"input", deduped.Stats.TotalInput,
		"unique", deduped.Stats.TotalUnique,
		"duplicates_removed", deduped.Stats.DuplicatesRemoved,
		"rejected", len(normalized.Rejected),
		"artifact", res.Ref.ID)
	return res, nil
}
