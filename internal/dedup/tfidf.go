package dedup

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"NewsMerger/internal/domain"
)

const minTokenRunes = 2

// tokenize lowercases text and splits it into word runs. Marks are kept inside
// words so Bengali vowel signs do not split a word apart.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// terms returns unigrams followed by adjacent bigrams.
func terms(text string) []string {
	tokens := tokenize(text)
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// Vectorize builds L2-normalised TF-IDF vectors using a vocabulary drawn only
// from docs. idf is the smoothed ln((1+n)/(1+df)) + 1.
func Vectorize(docs []string) []domain.SparseVector {
	vocab := map[string]int{}
	counts := make([]map[int]float64, len(docs))
	df := map[int]int{}

	for i, doc := range docs {
		tf := map[int]float64{}
		for _, term := range terms(doc) {
			idx, ok := vocab[term]
			if !ok {
				idx = len(vocab)
				vocab[term] = idx
			}
			tf[idx]++
		}
		for idx := range tf {
			df[idx]++
		}
		counts[i] = tf
	}

	n := float64(len(docs))
	vectors := make([]domain.SparseVector, len(docs))
	for i, tf := range counts {
		indices := make([]int, 0, len(tf))
		for idx := range tf {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		weights := make([]float64, len(indices))
		var norm float64
		for k, idx := range indices {
			w := tf[idx] * (math.Log((1+n)/(1+float64(df[idx]))) + 1)
			weights[k] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range weights {
				weights[k] /= norm
			}
		}
		vectors[i] = domain.SparseVector{Indices: indices, Weights: weights}
	}
	return vectors
}

// Cosine returns the cosine similarity of two sparse vectors; empty vectors score 0.
// Sums run in index order so equal inputs always give bit-identical scores.
func Cosine(a, b domain.SparseVector) float64 {
	if a.Len() == 0 || b.Len() == 0 {
		return 0
	}
	var dot, na, nb float64
	for _, w := range a.Weights {
		na += w * w
	}
	for _, w := range b.Weights {
		nb += w * w
	}
	for i, j := 0, 0; i < len(a.Indices) && j < len(b.Indices); {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Weights[i] * b.Weights[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func articleText(a domain.CanonicalArticle) string {
	return strings.TrimSpace(a.Title + " " + a.Summary)
}
