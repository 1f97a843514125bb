// Package artifact decides which stored snapshot is the authoritative input of each stage.
package artifact

import (
	"sort"

	"NewsMerger/internal/domain"
)

// Slot identifies one resolvable position: a kind, plus the source for scrapes
// or the batch number for per-batch enrichment.
type Slot struct {
	Kind   domain.ArtifactKind
	Source domain.SourceName
	Batch  int
}

// SlotOf returns the slot a ref belongs to.
func SlotOf(ref domain.ArtifactRef) Slot {
	s := Slot{Kind: ref.Kind}
	switch ref.Kind {
	case domain.KindScrape:
		s.Source = ref.Source
	case domain.KindEnrichBatch:
		s.Batch = ref.Batch
	}
	return s
}

// Registry maps slots to their refs, oldest first.
type Registry struct {
	slots map[Slot][]domain.ArtifactRef
}

// NewRegistry indexes refs.
func NewRegistry(refs ...domain.ArtifactRef) *Registry {
	r := &Registry{slots: map[Slot][]domain.ArtifactRef{}}
	for _, ref := range refs {
		r.Add(ref)
	}
	return r
}

// Add inserts ref keeping its slot ordered by recency.
func (r *Registry) Add(ref domain.ArtifactRef) {
	slot := SlotOf(ref)
	list := append(r.slots[slot], ref)
	sort.SliceStable(list, func(i, j int) bool { return list[j].Newer(list[i]) })
	r.slots[slot] = list
}

// Latest returns the most recent ref of slot.
func (r *Registry) Latest(slot Slot) (domain.ArtifactRef, bool) {
	list := r.slots[slot]
	if len(list) == 0 {
		return domain.ArtifactRef{}, false
	}
	return list[len(list)-1], true
}

// History returns every ref of slot, oldest first.
func (r *Registry) History(slot Slot) []domain.ArtifactRef {
	return append([]domain.ArtifactRef(nil), r.slots[slot]...)
}

// Slots lists the occupied slots of kind, ordered by source then batch.
func (r *Registry) Slots(kind domain.ArtifactKind) []Slot {
	var out []Slot
	for slot := range r.slots {
		if slot.Kind == kind {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Batch < out[j].Batch
	})
	return out
}

// Count is the number of refs of kind across all slots.
func (r *Registry) Count(kind domain.ArtifactKind) int {
	n := 0
	for slot, list := range r.slots {
		if slot.Kind == kind {
			n += len(list)
		}
	}
	return n
}
