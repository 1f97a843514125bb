// Package dedup finds cross-source near-duplicate articles and keeps one representative per story.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"NewsMerger/internal/domain"
)

// DefaultThreshold is the inclusive similarity at which two articles count as the same story.
const DefaultThreshold = 0.85

// SimilarityFunc scores two articles in [0, 1].
type SimilarityFunc func(a, b domain.CanonicalArticle) float64

// Options configures a Deduplicator.
type Options struct {
	Threshold      float64
	SourcePriority []domain.SourceName
	Workers        int
	// Similarity overrides the TF-IDF cosine score.
	Similarity SimilarityFunc
}

// Result is the deduplicated sequence plus its statistics.
type Result struct {
	Articles []domain.DeduplicatedArticle
	Stats    domain.DedupStats
}

// Deduplicator clusters articles through a similarity graph and union-find.
type Deduplicator struct {
	threshold  float64
	priority   map[domain.SourceName]int
	workers    int
	similarity SimilarityFunc
	logger     *slog.Logger
}

// New validates options and builds a Deduplicator.
func New(opts Options, logger *slog.Logger) (*Deduplicator, error) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Threshold < 0 || opts.Threshold > 1 || math.IsNaN(opts.Threshold) {
		return nil, fmt.Errorf("similarity threshold %v out of range", opts.Threshold)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Similarity == nil {
		opts.Similarity = func(a, b domain.CanonicalArticle) float64 {
			return Cosine(a.ContentVector, b.ContentVector)
		}
	}

	priority := make(map[domain.SourceName]int, len(opts.SourcePriority))
	for i, src := range opts.SourcePriority {
		if _, ok := priority[src]; !ok {
			priority[src] = i
		}
	}

	return &Deduplicator{
		threshold:  opts.Threshold,
		priority:   priority,
		workers:    opts.Workers,
		similarity: opts.Similarity,
		logger:     logger,
	}, nil
}

// Deduplicate is a pure function of its input: the same articles always give the same result.
func (d *Deduplicator) Deduplicate(ctx context.Context, input []domain.CanonicalArticle) (Result, error) {
	stats := domain.DedupStats{TotalInput: len(input), Threshold: d.threshold}
	if len(input) == 0 {
		return Result{Articles: []domain.DeduplicatedArticle{}, Stats: stats}, nil
	}

	articles := make([]domain.CanonicalArticle, len(input))
	copy(articles, input)

	docs := make([]string, len(articles))
	for i, a := range articles {
		docs[i] = articleText(a)
	}
	for i, vec := range Vectorize(docs) {
		articles[i].ContentVector = vec
	}

	edges, err := d.edges(ctx, articles)
	if err != nil {
		return Result{}, err
	}

	uf := newUnionFind(len(articles))
	for i, row := range edges {
		for _, j := range row {
			uf.union(i, j)
			stats.DuplicatePairs++
		}
	}

	groups := uf.components()
	out := make([]domain.DeduplicatedArticle, 0, len(groups))
	for _, members := range groups {
		out = append(out, d.represent(articles, members))
	}

	stats.TotalUnique = len(out)
	stats.DuplicatesRemoved = stats.TotalInput - stats.TotalUnique
	return Result{Articles: out, Stats: stats}, nil
}

// edges computes every cross-source pair before any clustering decision is taken.
// Row i holds the j > i that reach the threshold.
func (d *Deduplicator) edges(ctx context.Context, articles []domain.CanonicalArticle) ([][]int, error) {
	rows := make([][]int, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i := range articles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < len(articles); j++ {
				if articles[i].SourceName == articles[j].SourceName {
					continue
				}
				score := d.similarity(articles[i], articles[j])
				if score >= d.threshold {
					rows[i] = append(rows[i], j)
					d.debug("duplicate pair", "a", articles[i].URL, "b", articles[j].URL, "similarity", score)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pairwise similarity: %w", err)
	}
	return rows, nil
}

// represent picks the member whose source ranks first, ties going to scrape order.
func (d *Deduplicator) represent(articles []domain.CanonicalArticle, members []int) domain.DeduplicatedArticle {
	best := members[0]
	for _, m := range members[1:] {
		if d.rank(articles[m].SourceName) < d.rank(articles[best].SourceName) {
			best = m
		}
	}

	urls := make([]string, 0, len(members))
	urls = append(urls, articles[best].URL)
	for _, m := range members {
		if m != best {
			urls = append(urls, articles[m].URL)
		}
	}

	return domain.DeduplicatedArticle{
		CanonicalArticle: articles[best],
		DuplicateCount:   len(members),
		MergedSourceURLs: urls,
	}
}

func (d *Deduplicator) rank(src domain.SourceName) int {
	if r, ok := d.priority[src]; ok {
		return r
	}
	return len(d.priority)
}

func (d *Deduplicator) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
