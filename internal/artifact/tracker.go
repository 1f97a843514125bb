package artifact

import (
	"context"
	"fmt"

	"NewsMerger/internal/domain"
	"NewsMerger/internal/ports"
)

// Tracker answers "which artifact is current" for every stage through one registry.
type Tracker struct {
	store ports.ArtifactStore
}

// NewTracker wires the artifact store.
func NewTracker(store ports.ArtifactStore) *Tracker {
	return &Tracker{store: store}
}

// Resolution is the enrichment input chosen for an upload.
type Resolution struct {
	// Complete is set when a complete artifact exists; it then wins over every partial one.
	Complete *domain.ArtifactRef
	// Batches holds the newest per-batch artifact for each present batch, in batch order.
	Batches []domain.ArtifactRef
	// Missing lists batch numbers without a usable artifact.
	Missing []int
	// Stale holds the newest artifact of a slot when it was skipped for coming from
	// another merge or another batch count.
	Stale []domain.ArtifactRef
}

// Refs returns the artifacts to read, in order.
func (r Resolution) Refs() []domain.ArtifactRef {
	if r.Complete != nil {
		return []domain.ArtifactRef{*r.Complete}
	}
	return r.Batches
}

// Registry loads the refs of the given kinds.
func (t *Tracker) Registry(ctx context.Context, kinds ...domain.ArtifactKind) (*Registry, error) {
	reg := NewRegistry()
	for _, kind := range kinds {
		refs, err := t.store.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s artifacts: %w", kind, err)
		}
		for _, ref := range refs {
			reg.Add(ref)
		}
	}
	return reg, nil
}

// LatestMerge returns the newest merge artifact or a MissingPrerequisiteError for stage.
func (t *Tracker) LatestMerge(ctx context.Context, stage string) (domain.ArtifactRef, error) {
	reg, err := t.Registry(ctx, domain.KindMerge)
	if err != nil {
		return domain.ArtifactRef{}, err
	}
	ref, ok := reg.Latest(Slot{Kind: domain.KindMerge})
	if !ok {
		return domain.ArtifactRef{}, &domain.MissingPrerequisiteError{Stage: stage, Requires: domain.KindMerge}
	}
	return ref, nil
}

// LatestScrapes returns the newest scrape artifact per source. Sources named in order
// come first in that order; any others follow by name.
func (t *Tracker) LatestScrapes(ctx context.Context, stage string, order []domain.SourceName) ([]domain.ArtifactRef, error) {
	reg, err := t.Registry(ctx, domain.KindScrape)
	if err != nil {
		return nil, err
	}

	var out []domain.ArtifactRef
	taken := map[domain.SourceName]bool{}
	for _, src := range order {
		if taken[src] {
			continue
		}
		if ref, ok := reg.Latest(Slot{Kind: domain.KindScrape, Source: src}); ok {
			out = append(out, ref)
			taken[src] = true
		}
	}
	for _, slot := range reg.Slots(domain.KindScrape) {
		if taken[slot.Source] {
			continue
		}
		ref, _ := reg.Latest(slot)
		out = append(out, ref)
	}

	if len(out) == 0 {
		return nil, &domain.MissingPrerequisiteError{Stage: stage, Requires: domain.KindScrape}
	}
	return out, nil
}

// ResolveEnriched applies the precedence rules: a complete artifact beats any partial
// ones regardless of age; otherwise the newest artifact per batch 1..batchCount is used
// and absent batches are reported. Only artifacts cut from the latest merge with the same
// batch count are usable; the rest are reported as stale. No usable enrichment artifact
// at all is a MissingPrerequisiteError.
func (t *Tracker) ResolveEnriched(ctx context.Context, stage string, batchCount int) (Resolution, error) {
	if batchCount < 1 {
		return Resolution{}, fmt.Errorf("batch count must be at least 1, got %d", batchCount)
	}

	reg, err := t.Registry(ctx, domain.KindMerge, domain.KindEnrichComplete, domain.KindEnrichBatch)
	if err != nil {
		return Resolution{}, err
	}
	cur := currentPartition(reg, batchCount)

	var res Resolution
	complete, stale, ok := cur.pick(reg, Slot{Kind: domain.KindEnrichComplete})
	if stale != nil {
		res.Stale = append(res.Stale, *stale)
	}
	if ok {
		res.Complete = &complete
		return res, nil
	}

	for n := 1; n <= batchCount; n++ {
		ref, stale, ok := cur.pick(reg, Slot{Kind: domain.KindEnrichBatch, Batch: n})
		if stale != nil {
			res.Stale = append(res.Stale, *stale)
		}
		if !ok {
			res.Missing = append(res.Missing, n)
			continue
		}
		res.Batches = append(res.Batches, ref)
	}

	if len(res.Batches) == 0 {
		return Resolution{}, missingEnrichment(stage, domain.KindEnrichBatch, len(res.Stale))
	}
	return res, nil
}

// ResolveBatch returns the newest usable artifact of one batch.
func (t *Tracker) ResolveBatch(ctx context.Context, stage string, batchCount, number int) (domain.ArtifactRef, error) {
	reg, err := t.Registry(ctx, domain.KindMerge, domain.KindEnrichBatch)
	if err != nil {
		return domain.ArtifactRef{}, err
	}
	ref, stale, ok := currentPartition(reg, batchCount).pick(reg, Slot{Kind: domain.KindEnrichBatch, Batch: number})
	if !ok {
		skipped := 0
		if stale != nil {
			skipped = 1
		}
		return domain.ArtifactRef{}, missingEnrichment(fmt.Sprintf("%s batch %d", stage, number), domain.KindEnrichBatch, skipped)
	}
	return ref, nil
}

// partition identifies the article sequence enrichment artifacts must have been cut from.
type partition struct {
	mergeID    string
	batchCount int
}

func currentPartition(reg *Registry, batchCount int) partition {
	p := partition{batchCount: batchCount}
	if merge, ok := reg.Latest(Slot{Kind: domain.KindMerge}); ok {
		p.mergeID = merge.ID
	}
	return p
}

func (p partition) accepts(ref domain.ArtifactRef) bool {
	if p.mergeID != "" && ref.MergeID != p.mergeID {
		return false
	}
	return ref.Kind != domain.KindEnrichBatch || ref.TotalBatches == p.batchCount
}

// pick returns the newest ref of slot the partition accepts. stale is the newest ref
// of slot when that one was passed over.
func (p partition) pick(reg *Registry, slot Slot) (ref domain.ArtifactRef, stale *domain.ArtifactRef, ok bool) {
	history := reg.History(slot)
	for i := len(history) - 1; i >= 0; i-- {
		if p.accepts(history[i]) {
			ref, ok = history[i], true
			break
		}
	}
	if n := len(history); n > 0 && (!ok || history[n-1].ID != ref.ID) {
		newest := history[n-1]
		stale = &newest
	}
	return ref, stale, ok
}

func missingEnrichment(stage string, kind domain.ArtifactKind, stale int) error {
	err := &domain.MissingPrerequisiteError{Stage: stage, Requires: kind}
	if stale == 0 {
		return err
	}
	return fmt.Errorf("%w (%d stale artifacts from another merge or batch count)", err, stale)
}

// Read decodes an artifact payload.
func (t *Tracker) Read(ctx context.Context, ref domain.ArtifactRef, v any) error {
	return t.store.Read(ctx, ref, v)
}
