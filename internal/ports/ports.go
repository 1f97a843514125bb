package ports

import (
	"context"
	"time"

	"NewsMerger/internal/domain"
)

// ArticleSource pulls raw listings from one configured outlet.
type ArticleSource interface {
	FetchSource(ctx context.Context, source domain.SourceName) ([]domain.RawRecord, error)
	Sources() []domain.SourceName
}

// Downloader fetches the readable text of an article page.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Analyzer extracts structured fields from article text (LLM backed).
type Analyzer interface {
	Analyze(ctx context.Context, article domain.DeduplicatedArticle, content string) (domain.Analysis, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ArtifactStore is the append-only snapshot storage the tracker reads from.
type ArtifactStore interface {
	Write(ctx context.Context, meta domain.ArtifactRef, payload any) (domain.ArtifactRef, error)
	List(ctx context.Context, kind domain.ArtifactKind) ([]domain.ArtifactRef, error)
	Read(ctx context.Context, ref domain.ArtifactRef, v any) error
}

// ArticleRepository is the destination store keyed on source_url.
type ArticleRepository interface {
	UpsertArticle(ctx context.Context, article domain.EnrichedArticle) (inserted bool, err error)
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
	Ping(ctx context.Context) error
}

// Notifier streams run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
