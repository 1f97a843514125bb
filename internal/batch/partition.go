// Package batch splits the deduplicated sequence into contiguous enrichment batches.
package batch

import (
	"fmt"

	"NewsMerger/internal/domain"
)

// DefaultCount is the number of batches used when none is configured.
const DefaultCount = 4

// Size is the per-batch size ceil(total/count); the last non-empty batch takes the remainder.
func Size(total, count int) int {
	if count < 1 || total <= 0 {
		return 0
	}
	return (total + count - 1) / count
}

// Partition returns exactly count batches covering articles in order.
// Batch i (0-indexed) covers [i*size, min(total, (i+1)*size)); batches past the end are empty.
func Partition(articles []domain.DeduplicatedArticle, count int) ([]domain.Batch, error) {
	if count < 1 {
		return nil, fmt.Errorf("batch count must be at least 1, got %d", count)
	}

	total := len(articles)
	size := Size(total, count)
	batches := make([]domain.Batch, count)
	for i := range batches {
		start := min(total, i*size)
		end := min(total, (i+1)*size)

		items := make([]domain.BatchItem, 0, end-start)
		for pos := start; pos < end; pos++ {
			items = append(items, domain.BatchItem{GlobalNumber: pos + 1, Article: articles[pos]})
		}
		batches[i] = domain.Batch{Number: i + 1, Items: items}
	}
	return batches, nil
}

// Select partitions articles and returns the batch with the given 1-based number.
func Select(articles []domain.DeduplicatedArticle, count, number int) (domain.Batch, error) {
	if number < 1 || number > count {
		return domain.Batch{}, fmt.Errorf("batch number must be between 1 and %d, got %d", count, number)
	}
	batches, err := Partition(articles, count)
	if err != nil {
		return domain.Batch{}, err
	}
	return batches[number-1], nil
}

// All wraps the full sequence as one unit, numbered 0, for complete enrichment runs.
func All(articles []domain.DeduplicatedArticle) domain.Batch {
	items := make([]domain.BatchItem, len(articles))
	for i, a := range articles {
		items[i] = domain.BatchItem{GlobalNumber: i + 1, Article: a}
	}
	return domain.Batch{Number: 0, Items: items}
}
