package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsMerger/internal/domain"
)

// ScrapeResult lists the artifacts written by one scrape run.
type ScrapeResult struct {
	Refs    []domain.ArtifactRef
	Summary domain.StageSummary
}

// Scrape pulls every configured source and stores one scrape artifact per source.
// A failing source is recorded and skipped; the stage fails only when no source succeeds.
func (p *Pipeline) Scrape(ctx context.Context) (res ScrapeResult, err error) {
	start := time.Now()
	res.Summary = domain.StageSummary{Stage: domain.StageScrape}
	defer func() { p.observe(res.Summary, start, err) }()

	if p.source == nil {
		return res, fmt.Errorf("no article source configured")
	}
	if err := p.requireTracker(); err != nil {
		return res, err
	}

	sources := p.source.Sources()
	if len(sources) == 0 {
		return res, fmt.Errorf("no sources configured")
	}

	for _, name := range sources {
		records, fErr := p.source.FetchSource(ctx, name)
		if fErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Summary.Fail(string(name), fErr.Error())
			p.warn("source failed", "source", name, "error", fErr)
			continue
		}

		ref, wErr := p.artifacts.Write(ctx,
			domain.ArtifactRef{Kind: domain.KindScrape, Source: name},
			domain.ScrapeArtifact{Source: name, Records: records})
		if wErr != nil {
			return res, fmt.Errorf("store %s scrape: %w", name, wErr)
		}

		res.Refs = append(res.Refs, ref)
		res.Summary.Processed += len(records)
		p.info("source scraped", "source", name, "records", len(records), "artifact", ref.ID)
	}

	if len(res.Refs) == 0 {
		return res, fmt.Errorf("every source failed to scrape")
	}
	return res, nil
}
