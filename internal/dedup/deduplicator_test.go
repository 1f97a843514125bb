package dedup

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsMerger/internal/domain"
)

const (
	srcA domain.SourceName = "a"
	srcB domain.SourceName = "b"
	srcC domain.SourceName = "c"
)

func art(src domain.SourceName, url, title string) domain.CanonicalArticle {
	return domain.CanonicalArticle{Title: title, URL: url, SourceName: src}
}

// scores returns a similarity func backed by a symmetric URL-pair table; unknown pairs score low.
func scores(table map[[2]string]float64) SimilarityFunc {
	return func(a, b domain.CanonicalArticle) float64 {
		if s, ok := table[[2]string{a.URL, b.URL}]; ok {
			return s
		}
		if s, ok := table[[2]string{b.URL, a.URL}]; ok {
			return s
		}
		return 0.1
	}
}

func newDedup(t *testing.T, opts Options) *Deduplicator {
	t.Helper()
	d, err := New(opts, nil)
	require.NoError(t, err)
	return d
}

func floodScenario() []domain.CanonicalArticle {
	return []domain.CanonicalArticle{
		art(srcA, "a1", "PM visits flood area"),
		art(srcA, "a2", "Election date announced"),
		art(srcB, "b1", "Prime Minister tours flood-affected district"),
		art(srcB, "b2", "Stock market rises"),
	}
}

func TestDeduplicateFloodScenario(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{
		Threshold:      0.85,
		SourcePriority: []domain.SourceName{srcA, srcB},
		Workers:        4,
		Similarity:     scores(map[[2]string]float64{{"a1", "b1"}: 0.91, {"a2", "b2"}: 0.29}),
	})

	res, err := d.Deduplicate(context.Background(), floodScenario())
	require.NoError(t, err)

	require.Len(t, res.Articles, 3)
	assert.Equal(t, "a1", res.Articles[0].URL)
	assert.Equal(t, 2, res.Articles[0].DuplicateCount)
	assert.Equal(t, []string{"a1", "b1"}, res.Articles[0].MergedSourceURLs)
	assert.Equal(t, "a2", res.Articles[1].URL)
	assert.Equal(t, 1, res.Articles[1].DuplicateCount)
	assert.Equal(t, "b2", res.Articles[2].URL)

	assert.Equal(t, domain.DedupStats{
		TotalInput:        4,
		TotalUnique:       3,
		DuplicatesRemoved: 1,
		DuplicatePairs:    1,
		Threshold:         0.85,
	}, res.Stats)
}

func TestDeduplicateThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	input := []domain.CanonicalArticle{art(srcA, "a1", "x"), art(srcB, "b1", "y")}

	at := newDedup(t, Options{Threshold: 0.85, Similarity: scores(map[[2]string]float64{{"a1", "b1"}: 0.85})})
	res, err := at.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, 2, res.Articles[0].DuplicateCount)

	below := newDedup(t, Options{Threshold: 0.85, Similarity: scores(map[[2]string]float64{{"a1", "b1"}: 0.8499999})})
	res, err = below.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, res.Articles, 2)
}

func TestDeduplicateThresholdInclusiveWithCosine(t *testing.T) {
	t.Parallel()

	input := []domain.CanonicalArticle{
		art(srcA, "a1", "flood waters rise in sylhet"),
		art(srcB, "b1", "flood waters rise in sylhet district"),
	}
	vectors := Vectorize([]string{articleText(input[0]), articleText(input[1])})
	exact := Cosine(vectors[0], vectors[1])
	require.Greater(t, exact, 0.0)
	require.Less(t, exact, 1.0)

	d := newDedup(t, Options{Threshold: exact})
	res, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, res.Articles, 1)
}

func TestDeduplicateNeverComparesSameSource(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := newDedup(t, Options{Similarity: func(a, b domain.CanonicalArticle) float64 {
		calls.Add(1)
		return 1
	}})

	input := []domain.CanonicalArticle{
		art(srcA, "a1", "Same words"),
		art(srcA, "a2", "Same words"),
		art(srcA, "a3", "Same words"),
	}
	res, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)

	assert.Len(t, res.Articles, 3)
	assert.Zero(t, calls.Load())
	assert.Zero(t, res.Stats.DuplicatesRemoved)
}

func TestDeduplicateTFIDFIdenticalAcrossSources(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{SourcePriority: []domain.SourceName{srcA, srcB}})
	input := []domain.CanonicalArticle{
		{Title: "Padma bridge toll collection crosses record", Summary: "Revenue hits new high", URL: "a1", SourceName: srcA},
		{Title: "Padma bridge toll collection crosses record", Summary: "Revenue hits new high", URL: "b1", SourceName: srcB},
		{Title: "Cricket team wins series", Summary: "Bangladesh beat Zimbabwe", URL: "b2", SourceName: srcB},
	}

	res, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, []string{"a1", "b1"}, res.Articles[0].MergedSourceURLs)
	assert.Equal(t, "b2", res.Articles[1].URL)
}

func TestDeduplicateSourcePriorityPicksRepresentative(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{
		SourcePriority: []domain.SourceName{srcB, srcA},
		Similarity:     scores(map[[2]string]float64{{"a1", "b1"}: 0.91}),
	})

	res, err := d.Deduplicate(context.Background(), floodScenario())
	require.NoError(t, err)
	require.Len(t, res.Articles, 3)

	assert.Equal(t, "b1", res.Articles[0].URL)
	assert.Equal(t, srcB, res.Articles[0].SourceName)
	assert.Equal(t, []string{"b1", "a1"}, res.Articles[0].MergedSourceURLs)
}

func TestDeduplicateUnknownSourceRanksLast(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{
		SourcePriority: []domain.SourceName{srcB},
		Similarity:     scores(map[[2]string]float64{{"c1", "b1"}: 0.99}),
	})

	res, err := d.Deduplicate(context.Background(), []domain.CanonicalArticle{
		art(srcC, "c1", "x"),
		art(srcB, "b1", "y"),
	})
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "b1", res.Articles[0].URL)
}

func TestDeduplicateClustersAreTransitive(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{
		SourcePriority: []domain.SourceName{srcA, srcB, srcC},
		Similarity: scores(map[[2]string]float64{
			{"a1", "b1"}: 0.9,
			{"b1", "c1"}: 0.9,
			{"a1", "c1"}: 0.5,
		}),
	})

	input := []domain.CanonicalArticle{
		art(srcC, "c1", "z"),
		art(srcB, "b1", "y"),
		art(srcA, "a1", "x"),
	}
	res, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "a1", res.Articles[0].URL)
	assert.Equal(t, 3, res.Articles[0].DuplicateCount)
	assert.Equal(t, []string{"a1", "c1", "b1"}, res.Articles[0].MergedSourceURLs)
	assert.Equal(t, 2, res.Stats.DuplicatePairs)
}

func TestDeduplicateEmptyInput(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{})
	res, err := d.Deduplicate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Equal(t, domain.DedupStats{Threshold: DefaultThreshold}, res.Stats)
}

func TestDeduplicateSingleSourcePassesThrough(t *testing.T) {
	t.Parallel()

	d := newDedup(t, Options{})
	input := []domain.CanonicalArticle{art(srcA, "a1", "One"), art(srcA, "a2", "Two")}

	res, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, res.Articles, 2)
	for i, a := range res.Articles {
		assert.Equal(t, input[i].URL, a.URL)
		assert.Equal(t, 1, a.DuplicateCount)
		assert.Equal(t, []string{input[i].URL}, a.MergedSourceURLs)
	}
}

func TestDeduplicateIsDeterministicAndPartitionsInput(t *testing.T) {
	t.Parallel()

	input := []domain.CanonicalArticle{
		{Title: "Flood situation worsens in Sylhet", Summary: "Thousands stranded", URL: "a1", SourceName: srcA},
		{Title: "Dengue cases rise in Dhaka", Summary: "Hospitals overwhelmed", URL: "a2", SourceName: srcA},
		{Title: "Flood situation worsens in Sylhet", Summary: "Thousands stranded as rivers swell", URL: "b1", SourceName: srcB},
		{Title: "Dengue cases rise in Dhaka", Summary: "Hospitals overwhelmed", URL: "b2", SourceName: srcB},
		{Title: "New metro line opens", Summary: "Commuters relieved", URL: "b3", SourceName: srcB},
	}

	d := newDedup(t, Options{Threshold: 0.7, Workers: 3, SourcePriority: []domain.SourceName{srcA, srcB}})
	first, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)
	second, err := d.Deduplicate(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	var merged []string
	for _, a := range first.Articles {
		merged = append(merged, a.MergedSourceURLs...)
	}
	sort.Strings(merged)
	assert.Equal(t, []string{"a1", "a2", "b1", "b2", "b3"}, merged)
	assert.Equal(t, first.Stats.TotalInput, first.Stats.TotalUnique+first.Stats.DuplicatesRemoved)
}

func TestDeduplicateHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDedup(t, Options{})
	_, err := d.Deduplicate(ctx, floodScenario())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadThreshold(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Threshold: 1.5}, nil)
	assert.Error(t, err)
}
