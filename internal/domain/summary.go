package domain

// Stage names used in summaries, metrics and logs.
const (
	StageScrape    = "scrape"
	StageNormalize = "normalize"
	StageMerge     = "merge"
	StageEnrich    = "enrich"
	StageUpload    = "upload"
)

// StageSummary is returned by every stage so callers can detect partial success without logs.
type StageSummary struct {
	Stage     string           `json:"stage"`
	Processed int              `json:"processed"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Failures  []ArticleFailure `json:"failures,omitempty"`
	// Missing lists batch numbers that had no artifact.
	Missing []int `json:"missing_batches,omitempty"`
}

// Fail records one isolated article failure.
func (s *StageSummary) Fail(url, reason string) {
	s.Failed++
	s.Failures = append(s.Failures, ArticleFailure{URL: url, Stage: s.Stage, Reason: reason})
}
