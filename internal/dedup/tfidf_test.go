package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsMerger/internal/domain"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"pm", "visits", "flood", "affected", "area"},
		tokenize("PM visits a flood-affected area!"))
	assert.Equal(t, []string{"বন্যা", "পরিস্থিতি"}, tokenize("বন্যা পরিস্থিতি"))
	assert.Empty(t, tokenize(" a . ! "))
}

func TestTermsIncludeBigrams(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"stock", "market", "rises", "stock market", "market rises"},
		terms("Stock market rises"))
}

func TestVectorizeAndCosine(t *testing.T) {
	t.Parallel()

	vecs := Vectorize([]string{
		"stock market rises",
		"stock market rises",
		"election date announced",
		"",
	})
	require.Len(t, vecs, 4)

	assert.InDelta(t, 1.0, Cosine(vecs[0], vecs[1]), 1e-12)
	assert.Zero(t, Cosine(vecs[0], vecs[2]))
	assert.Zero(t, Cosine(vecs[0], vecs[3]))
	assert.Equal(t, 0, vecs[3].Len())

	for _, v := range vecs[:3] {
		var norm float64
		for _, w := range v.Weights {
			norm += w * w
		}
		assert.InDelta(t, 1.0, norm, 1e-12)
		assert.IsIncreasing(t, v.Indices)
	}
}

func TestCosinePartialOverlap(t *testing.T) {
	t.Parallel()

	a := domain.SparseVector{Indices: []int{0, 1}, Weights: []float64{1, 1}}
	b := domain.SparseVector{Indices: []int{1, 2}, Weights: []float64{1, 1}}
	assert.InDelta(t, 0.5, Cosine(a, b), 1e-12)
	assert.Equal(t, Cosine(a, b), Cosine(b, a))
}
