package artifactfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NewsMerger/internal/domain"
)

func TestStoreWriteListRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fixed := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return fixed })

	ctx := context.Background()
	payload := domain.ScrapeArtifact{
		Source:  domain.SourceDailyStar,
		Records: []domain.RawRecord{{Source: domain.SourceDailyStar, Fields: map[string]any{"title": "বন্যা"}}},
	}

	ref, err := store.Write(ctx, domain.ArtifactRef{Kind: domain.KindScrape, Source: domain.SourceDailyStar}, payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ref.ID == "" || ref.Seq != 1 || !ref.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	if _, err := store.Write(ctx, domain.ArtifactRef{Kind: domain.KindMerge}, domain.MergeArtifact{}); err != nil {
		t.Fatalf("Write merge: %v", err)
	}

	scrapes, err := store.List(ctx, domain.KindScrape)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(scrapes) != 1 || scrapes[0].ID != ref.ID || scrapes[0].Source != domain.SourceDailyStar {
		t.Fatalf("unexpected scrape refs: %+v", scrapes)
	}

	var got domain.ScrapeArtifact
	if err := store.Read(ctx, scrapes[0], &got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Records[0].Fields["title"] != "বন্যা" {
		t.Fatalf("unexpected payload: %+v", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "scrape", ref.ID+".json")); err != nil {
		t.Fatalf("payload file missing: %v", err)
	}
}

func TestStoreResumesSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	first, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := first.Write(ctx, domain.ArtifactRef{Kind: domain.KindMerge}, domain.MergeArtifact{}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	second, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	ref, err := second.Write(ctx, domain.ArtifactRef{Kind: domain.KindMerge}, domain.MergeArtifact{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ref.Seq != 4 {
		t.Fatalf("expected seq 4, got %d", ref.Seq)
	}

	refs, err := second.List(ctx, domain.KindMerge)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(refs) != 4 {
		t.Fatalf("expected 4 merge refs, got %d", len(refs))
	}
}

func TestStoreRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.Write(context.Background(), domain.ArtifactRef{Kind: "bogus"}, struct{}{}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestStoreListEmpty(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	refs, err := store.List(context.Background(), domain.KindEnrichComplete)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected no refs, got %d", len(refs))
	}
}
