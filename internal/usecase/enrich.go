package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"NewsMerger/internal/batch"
	"NewsMerger/internal/domain"
)

// embeddingFallbackRunes bounds the full-text prefix embedded when title and summary are empty.
const embeddingFallbackRunes = 1000

// EnrichResult is one enrichment artifact and its summary.
type EnrichResult struct {
	Ref      domain.ArtifactRef
	Artifact domain.EnrichmentArtifact
	Summary  domain.StageSummary
}

// EnrichBatch enriches batch number (1-based) of the latest merge and stores an enrich_batch artifact.
// Re-running a batch supersedes its previous artifact without deleting it.
func (p *Pipeline) EnrichBatch(ctx context.Context, number int) (EnrichResult, error) {
	return p.runEnrich(ctx, number)
}

// EnrichAll enriches the whole latest merge and stores one enrich_complete artifact.
func (p *Pipeline) EnrichAll(ctx context.Context) (EnrichResult, error) {
	return p.runEnrich(ctx, 0)
}

func (p *Pipeline) runEnrich(ctx context.Context, number int) (res EnrichResult, err error) {
	start := time.Now()
	res.Summary = domain.StageSummary{Stage: domain.StageEnrich}
	defer func() { p.observe(res.Summary, start, err) }()

	if err := p.requireTracker(); err != nil {
		return res, err
	}
	if p.downloader == nil || p.analyzer == nil {
		return res, fmt.Errorf("enrichment collaborators are not configured")
	}

	mergeRef, err := p.tracker.LatestMerge(ctx, domain.StageEnrich)
	if err != nil {
		return res, err
	}
	var merged domain.MergeArtifact
	if err := p.tracker.Read(ctx, mergeRef, &merged); err != nil {
		return res, err
	}

	var b domain.Batch
	meta := domain.ArtifactRef{Kind: domain.KindEnrichComplete}
	if number == 0 {
		b = batch.All(merged.Articles)
	} else {
		if b, err = batch.Select(merged.Articles, p.batchCount, number); err != nil {
			return res, err
		}
		meta = domain.ArtifactRef{Kind: domain.KindEnrichBatch, Batch: number, TotalBatches: p.batchCount}
	}

	p.info("enrichment started", "batch", number, "articles", len(b.Items), "merge", mergeRef.ID)

	articles, summary, err := p.enrichItems(ctx, b)
	res.Summary = summary
	if err != nil {
		return res, err
	}

	res.Artifact = domain.EnrichmentArtifact{
		BatchNumber:     number,
		TotalBatches:    p.batchCount,
		MergeArtifactID: mergeRef.ID,
		Articles:        articles,
		Summary:         summary,
	}
	meta.MergeID = mergeRef.ID
	res.Ref, err = p.artifacts.Write(ctx, meta, res.Artifact)
	if err != nil {
		return res, fmt.Errorf("store enrichment: %w", err)
	}

	p.info("enrichment finished",
		"batch", number,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"artifact", res.Ref.ID)
	return res, nil
}

// enrichItems processes every item through a bounded pool whose aggregate call rate is
// capped by one limiter. Output keeps global order; failed articles are left out.
func (p *Pipeline) enrichItems(ctx context.Context, b domain.Batch) ([]domain.EnrichedArticle, domain.StageSummary, error) {
	summary := domain.StageSummary{Stage: domain.StageEnrich}

	limit := rate.Inf
	if p.enrichDelay > 0 {
		limit = rate.Every(p.enrichDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	type outcome struct {
		article domain.EnrichedArticle
		reason  string
	}
	outcomes := make([]outcome, len(b.Items))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, item := range b.Items {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			article, reason := p.enrichOne(gctx, item, b.Number)
			if reason != "" && gctx.Err() != nil {
				return gctx.Err()
			}
			mu.Lock()
			outcomes[i] = outcome{article: article, reason: reason}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, summary, fmt.Errorf("enrichment interrupted: %w", err)
	}

	articles := make([]domain.EnrichedArticle, 0, len(outcomes))
	for i, o := range outcomes {
		if o.reason != "" {
			summary.Fail(b.Items[i].Article.URL, o.reason)
			continue
		}
		articles = append(articles, o.article)
		summary.Processed++
	}
	return articles, summary, nil
}

// enrichOne returns a non-empty reason when the article must be excluded.
func (p *Pipeline) enrichOne(ctx context.Context, item domain.BatchItem, batchNumber int) (domain.EnrichedArticle, string) {
	url := item.Article.URL

	content, err := p.downloader.Download(ctx, url)
	if err != nil {
		p.warn("download failed", "url", url, "error", err)
		return domain.EnrichedArticle{}, "download: " + err.Error()
	}

	analysis, err := p.analyzer.Analyze(ctx, item.Article, content)
	if err != nil {
		p.warn("analysis failed", "url", url, "error", err)
		return domain.EnrichedArticle{}, "analyze: " + err.Error()
	}

	enriched := domain.EnrichedArticle{
		DeduplicatedArticle: item.Article,
		SourceURL:           url,
		BatchNumber:         batchNumber,
		GlobalNumber:        item.GlobalNumber,
		ProcessingStatus:    domain.StatusPartial,
		ProcessedAt:         p.now(),
	}
	enriched.ApplyAnalysis(analysis)
	if enriched.FullText == "" {
		enriched.FullText = content
	}

	if p.embedder == nil {
		return enriched, ""
	}
	vec, err := p.embedder.Embed(ctx, embeddingText(enriched))
	if err != nil {
		p.warn("embedding failed, keeping partial record", "url", url, "error", err)
		return enriched, ""
	}
	enriched.SearchEmbedding = vec
	enriched.EmbeddingModel = p.embedder.Model()
	enriched.ProcessingStatus = domain.StatusCompleted
	p.debug("article enriched", "url", url, "global", item.GlobalNumber)
	return enriched, ""
}

func embeddingText(a domain.EnrichedArticle) string {
	if text := strings.TrimSpace(a.Title + " " + a.Summary); text != "" {
		return text
	}
	runes := []rune(strings.TrimSpace(a.FullText))
	if len(runes) > embeddingFallbackRunes {
		runes = runes[:embeddingFallbackRunes]
	}
	return string(runes)
}
