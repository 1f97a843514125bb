package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsMerger/internal/dedup"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/infrastructure/artifactfs"
	"NewsMerger/internal/reconcile"
)

type fakeSource struct {
	records map[domain.SourceName][]domain.RawRecord
	order   []domain.SourceName
	fail    map[domain.SourceName]error
}

func (f *fakeSource) Sources() []domain.SourceName { return f.order }

func (f *fakeSource) FetchSource(_ context.Context, name domain.SourceName) ([]domain.RawRecord, error) {
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return f.records[name], nil
}

type fakeDownloader struct {
	fail map[string]bool
}

func (f *fakeDownloader) Download(_ context.Context, url string) (string, error) {
	if f.fail[url] {
		return "", errors.New("404 not found")
	}
	return "full text of " + url, nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, a domain.DeduplicatedArticle, content string) (domain.Analysis, error) {
	return domain.Analysis{
		FullText:        content,
		Sentiment:       "neutral",
		ImportanceLevel: 5,
		Keywords:        []string{string(a.SourceName)},
		Language:        "bn",
	}, nil
}

type fakeEmbedder struct {
	dim  int
	fail map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail[text] {
		return nil, errors.New("embedding quota exceeded")
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) Model() string { return "fake-embed" }

type memRepo struct {
	mu   sync.Mutex
	rows map[string]domain.EnrichedArticle
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]domain.EnrichedArticle{}} }

func (m *memRepo) UpsertArticle(_ context.Context, a domain.EnrichedArticle) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.rows[a.SourceURL]
	m.rows[a.SourceURL] = a
	return !exists, nil
}

func (m *memRepo) ExistingURLs(_ context.Context, urls []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, u := range urls {
		if _, ok := m.rows[u]; ok {
			out[u] = true
		}
	}
	return out, nil
}

func (m *memRepo) Ping(context.Context) error { return nil }

type recordingNotifier struct {
	reports []string
}

func (r *recordingNotifier) PublishReport(_ context.Context, report string) error {
	r.reports = append(r.reports, report)
	return nil
}

func u(id string) string { return "https://news.test/" + id }

func rec(src domain.SourceName, title, id string) domain.RawRecord {
	return domain.RawRecord{Source: src, Fields: map[string]any{"title": title, "summary": title, "link": u(id)}}
}

// floodSource is the two-outlet scenario: a1 and b1 describe the same event.
func floodSource() *fakeSource {
	return &fakeSource{
		order: []domain.SourceName{"A", "B"},
		records: map[domain.SourceName][]domain.RawRecord{
			"A": {
				rec("A", "PM visits flood area", "a1"),
				rec("A", "Election date announced", "a2"),
			},
			"B": {
				rec("B", "Prime Minister tours flood-affected district", "b1"),
				rec("B", "Stock market rises", "b2"),
			},
		},
	}
}

// floodSimilarity scores a1/b1 at 0.91 and everything else below 0.3.
func floodSimilarity(a, b domain.CanonicalArticle) float64 {
	pair := a.URL + "|" + b.URL
	if pair == u("a1")+"|"+u("b1") || pair == u("b1")+"|"+u("a1") {
		return 0.91
	}
	return 0.2
}

type harness struct {
	pipeline *Pipeline
	store    *artifactfs.Store
	repo     *memRepo
	source   *fakeSource
	download *fakeDownloader
	embed    *fakeEmbedder
	notifier *recordingNotifier
}

func newHarness(t *testing.T, batchCount int) *harness {
	t.Helper()

	store, err := artifactfs.New(t.TempDir())
	require.NoError(t, err)

	d, err := dedup.New(dedup.Options{
		Threshold:      0.85,
		SourcePriority: []domain.SourceName{"A", "B"},
		Similarity:     floodSimilarity,
	}, nil)
	require.NoError(t, err)

	h := &harness{
		store:    store,
		repo:     newMemRepo(),
		source:   floodSource(),
		download: &fakeDownloader{fail: map[string]bool{}},
		embed:    &fakeEmbedder{dim: 3, fail: map[string]bool{}},
		notifier: &recordingNotifier{},
	}

	clock := time.Date(2025, time.August, 1, 6, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	h.pipeline = NewPipeline(PipelineDeps{
		Source:       h.source,
		Artifacts:    store,
		Deduplicator: d,
		Downloader:   h.download,
		Analyzer:     fakeAnalyzer{},
		Embedder:     h.embed,
		Repository:   h.repo,
		Reconciler:   reconcile.New(h.repo, reconcile.Options{EmbeddingDimension: 3, Workers: 2}, nil),
		Notifier:     h.notifier,
		BatchCount:   batchCount,
		Workers:      2,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	return h
}
