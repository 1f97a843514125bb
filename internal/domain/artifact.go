package domain

import "time"

// ArtifactKind enumerates the stage outputs the pipeline persists.
type ArtifactKind string

const (
	KindScrape         ArtifactKind = "scrape"
	KindMerge          ArtifactKind = "merge"
	KindEnrichBatch    ArtifactKind = "enrich_batch"
	KindEnrichComplete ArtifactKind = "enrich_complete"
)

// Kinds lists every artifact kind in pipeline order.
var Kinds = []ArtifactKind{KindScrape, KindMerge, KindEnrichBatch, KindEnrichComplete}

// Valid reports whether k is a known kind.
func (k ArtifactKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ArtifactRef is the metadata of one immutable stage snapshot.
// Source is set for scrape artifacts only, Batch and TotalBatches for enrich_batch only.
// MergeID names the merge artifact an enrichment snapshot was cut from.
type ArtifactRef struct {
	ID           string       `json:"id"`
	Kind         ArtifactKind `json:"kind"`
	Source       SourceName   `json:"source,omitempty"`
	Batch        int          `json:"batch,omitempty"`
	TotalBatches int          `json:"total_batches,omitempty"`
	MergeID      string       `json:"merge_id,omitempty"`
	Seq          int64        `json:"seq"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Newer reports whether r was produced after other. Seq is the store's monotonic
// counter and decides first; CreatedAt only orders refs that share a Seq.
func (r ArtifactRef) Newer(other ArtifactRef) bool {
	if r.Seq != other.Seq {
		return r.Seq > other.Seq
	}
	return r.CreatedAt.After(other.CreatedAt)
}

// ScrapeArtifact is the payload of a scrape snapshot.
type ScrapeArtifact struct {
	Source  SourceName  `json:"source"`
	Records []RawRecord `json:"records"`
}

// MergeArtifact is the payload of a merge snapshot.
type MergeArtifact struct {
	Articles  []DeduplicatedArticle `json:"news_articles"`
	Stats     DedupStats            `json:"deduplication_stats"`
	Sources   []SourceName          `json:"sources_loaded"`
	ScrapeIDs []string              `json:"scrape_artifacts"`
	Rejected  []ArticleFailure      `json:"rejected,omitempty"`
}

// EnrichmentArtifact is the payload of both enrich_batch and enrich_complete snapshots.
type EnrichmentArtifact struct {
	BatchNumber     int               `json:"batch_number,omitempty"`
	TotalBatches    int               `json:"total_batches"`
	MergeArtifactID string            `json:"merge_artifact"`
	Articles        []EnrichedArticle `json:"detailed_articles"`
	Summary         StageSummary      `json:"processing_stats"`
}
