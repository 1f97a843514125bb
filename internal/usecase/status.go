package usecase

import (
	"context"
	"errors"
	"fmt"

	"NewsMerger/internal/artifact"
	"NewsMerger/internal/domain"
)

// KindStatus summarizes the stored artifacts of one kind.
type KindStatus struct {
	Kind   domain.ArtifactKind
	Count  int
	Latest []domain.ArtifactRef
}

// Status is a read-only view of pipeline state.
type Status struct {
	Artifacts []KindStatus
	// Enrichment is what an upload would use now; nil when nothing is enriched yet.
	Enrichment *artifact.Resolution
	// MergedArticles is the size of the latest merge, StoredArticles how many of them the store already holds.
	MergedArticles int
	StoredArticles int
}

// Status inspects artifacts and, when a repository is configured, the destination store.
func (p *Pipeline) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := p.requireTracker(); err != nil {
		return st, err
	}

	reg, err := p.tracker.Registry(ctx, domain.Kinds...)
	if err != nil {
		return st, err
	}
	for _, kind := range domain.Kinds {
		ks := KindStatus{Kind: kind, Count: reg.Count(kind)}
		for _, slot := range reg.Slots(kind) {
			if ref, ok := reg.Latest(slot); ok {
				ks.Latest = append(ks.Latest, ref)
			}
		}
		st.Artifacts = append(st.Artifacts, ks)
	}

	resolution, err := p.tracker.ResolveEnriched(ctx, domain.StageUpload, p.batchCount)
	switch {
	case err == nil:
		st.Enrichment = &resolution
	case !errors.Is(err, domain.ErrMissingPrerequisite):
		return st, err
	}

	mergeRef, err := p.tracker.LatestMerge(ctx, "status")
	if errors.Is(err, domain.ErrMissingPrerequisite) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	var merged domain.MergeArtifact
	if err := p.tracker.Read(ctx, mergeRef, &merged); err != nil {
		return st, err
	}
	st.MergedArticles = len(merged.Articles)

	if p.repository == nil || len(merged.Articles) == 0 {
		return st, nil
	}
	urls := make([]string, 0, len(merged.Articles))
	for _, a := range merged.Articles {
		urls = append(urls, a.URL)
	}
	existing, err := p.repository.ExistingURLs(ctx, urls)
	if err != nil {
		return st, fmt.Errorf("check stored articles: %w", err)
	}
	st.StoredArticles = len(existing)
	return st, nil
}
