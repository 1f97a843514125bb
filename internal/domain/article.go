package domain

import "time"

// SourceName tags the outlet an article was scraped from.
type SourceName string

const (
	SourceDailyStar  SourceName = "dailystar"
	SourceProthomAlo SourceName = "prothomalo"
)

// RawRecord is one scraped entry as the source produced it. Field names differ per outlet.
type RawRecord struct {
	Source SourceName     `json:"source"`
	Fields map[string]any `json:"fields"`
}

// CanonicalArticle is the normalized record every later stage works with.
type CanonicalArticle struct {
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	Category   string     `json:"category,omitempty"`
	URL        string     `json:"url"`
	SourceName SourceName `json:"source_name"`
	// Position is the article's index in the unioned scrape order.
	Position int `json:"position"`
	// ContentVector is only used for similarity and never leaves the merge stage.
	ContentVector SparseVector `json:"-"`
}

// SparseVector holds vocabulary indices in ascending order with their weights.
type SparseVector struct {
	Indices []int
	Weights []float64
}

// Len is the number of non-zero entries.
func (v SparseVector) Len() int { return len(v.Indices) }

// DeduplicatedArticle is the representative of one cluster of cross-source duplicates.
type DeduplicatedArticle struct {
	CanonicalArticle
	DuplicateCount   int      `json:"duplicate_count"`
	MergedSourceURLs []string `json:"merged_source_urls"`
}

// DedupStats summarizes one merge run.
type DedupStats struct {
	TotalInput        int     `json:"total_input"`
	TotalUnique       int     `json:"total_unique"`
	DuplicatesRemoved int     `json:"duplicates_removed"`
	DuplicatePairs    int     `json:"duplicate_pairs"`
	Threshold         float64 `json:"similarity_threshold"`
}

// BatchItem pins an article to its 1-based position in the deduplicated sequence.
type BatchItem struct {
	GlobalNumber int                 `json:"global_article_number"`
	Article      DeduplicatedArticle `json:"article"`
}

// Batch is a contiguous slice of the deduplicated sequence.
type Batch struct {
	Number int         `json:"batch_number"`
	Items  []BatchItem `json:"items"`
}

// NamedEntities groups entities extracted by the analyzer.
type NamedEntities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
}

// Analysis is what the enrichment analyzer returns for one article.
type Analysis struct {
	Title           string        `json:"title,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	FullText        string        `json:"full_text"`
	Category        string        `json:"category,omitempty"`
	Sentiment       string        `json:"sentiment,omitempty"`
	ImportanceLevel int           `json:"importance_level,omitempty"`
	Keywords        []string      `json:"keywords,omitempty"`
	NamedEntities   NamedEntities `json:"named_entities"`
	DateTime        string        `json:"date_time,omitempty"`
	Location        string        `json:"location,omitempty"`
	Language        string        `json:"language,omitempty"`
	ThumbnailURL    string        `json:"thumbnail_url,omitempty"`
}

// ProcessingStatus describes how far enrichment got for an article.
type ProcessingStatus string

const (
	StatusCompleted ProcessingStatus = "completed"
	StatusPartial   ProcessingStatus = "partial"
	StatusFailed    ProcessingStatus = "failed"
)

// Rank orders statuses so that a more complete record wins an overlap.
func (s ProcessingStatus) Rank() int {
	switch s {
	case StatusCompleted:
		return 2
	case StatusPartial:
		return 1
	default:
		return 0
	}
}

// EnrichedArticle is a deduplicated article plus its analysis. SourceURL is the storage key.
type EnrichedArticle struct {
	DeduplicatedArticle
	FullText         string           `json:"full_text"`
	Sentiment        string           `json:"sentiment,omitempty"`
	ImportanceLevel  int              `json:"importance_level,omitempty"`
	Keywords         []string         `json:"keywords,omitempty"`
	NamedEntities    NamedEntities    `json:"named_entities"`
	DateTime         string           `json:"date_time,omitempty"`
	Location         string           `json:"location,omitempty"`
	Language         string           `json:"language,omitempty"`
	ThumbnailURL     string           `json:"thumbnail_url,omitempty"`
	SourceURL        string           `json:"source_url"`
	BatchNumber      int              `json:"batch_number"`
	GlobalNumber     int              `json:"global_article_number"`
	SearchEmbedding  []float32        `json:"embedding,omitempty"`
	EmbeddingModel   string           `json:"embedding_model,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ProcessedAt      time.Time        `json:"processing_timestamp"`
}

// ApplyAnalysis copies analyzer output onto the article, keeping scraped values the analyzer left empty.
func (e *EnrichedArticle) ApplyAnalysis(a Analysis) {
	if a.Title != "" {
		e.Title = a.Title
	}
	if a.Summary != "" {
		e.Summary = a.Summary
	}
	if a.Category != "" {
		e.Category = a.Category
	}
	e.FullText = a.FullText
	e.Sentiment = a.Sentiment
	e.ImportanceLevel = a.ImportanceLevel
	e.Keywords = a.Keywords
	e.NamedEntities = a.NamedEntities
	e.DateTime = a.DateTime
	e.Location = a.Location
	e.Language = a.Language
	e.ThumbnailURL = a.ThumbnailURL
}
