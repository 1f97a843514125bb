// Package normalize turns heterogeneous per-source scrape records into canonical articles.
package normalize

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"NewsMerger/internal/domain"
)

// Canonical field names.
const (
	FieldTitle    = "title"
	FieldSummary  = "summary"
	FieldURL      = "url"
	FieldCategory = "category"
)

var defaultAliases = map[string][]string{
	FieldTitle:    {"title", "headline", "heading"},
	FieldSummary:  {"summary", "description", "excerpt", "teaser", "lead"},
	FieldURL:      {"url", "link", "href", "source_url"},
	FieldCategory: {"category", "section", "categories", "tag"},
}

// SourceRules customizes how one outlet's records are read.
type SourceRules struct {
	// BaseURL resolves relative links.
	BaseURL string
	// Fields overrides the key used for a canonical field.
	Fields map[string]string
}

// Result is the normalizer output plus everything it dropped.
type Result struct {
	Articles []domain.CanonicalArticle
	Rejected []domain.ArticleFailure
}

// Summary reports the normalization counts in the common stage shape.
func (r Result) Summary() domain.StageSummary {
	return domain.StageSummary{
		Stage:     domain.StageNormalize,
		Processed: len(r.Articles),
		Failed:    len(r.Rejected),
		Failures:  r.Rejected,
	}
}

// Normalizer maps raw records onto domain.CanonicalArticle.
type Normalizer struct {
	rules  map[domain.SourceName]SourceRules
	logger *slog.Logger
}

// New builds a normalizer; rules may be nil.
func New(rules map[domain.SourceName]SourceRules, logger *slog.Logger) *Normalizer {
	if rules == nil {
		rules = map[domain.SourceName]SourceRules{}
	}
	return &Normalizer{rules: rules, logger: logger}
}

// Normalize converts records in order. A record missing title or url is dropped, never fatal.
func (n *Normalizer) Normalize(records []domain.RawRecord) Result {
	var res Result
	seen := map[domain.SourceName]map[string]struct{}{}

	for i, rec := range records {
		article, err := n.normalizeOne(rec)
		if err != nil {
			n.reject(&res, rec, i, err.Error())
			continue
		}

		if seen[rec.Source] == nil {
			seen[rec.Source] = map[string]struct{}{}
		}
		if _, dup := seen[rec.Source][article.URL]; dup {
			n.reject(&res, rec, i, "duplicate url within source")
			continue
		}
		seen[rec.Source][article.URL] = struct{}{}

		article.Position = len(res.Articles)
		res.Articles = append(res.Articles, article)
	}

	return res
}

func (n *Normalizer) normalizeOne(rec domain.RawRecord) (domain.CanonicalArticle, error) {
	if rec.Source == "" {
		return domain.CanonicalArticle{}, fmt.Errorf("record has no source")
	}
	rules := n.rules[rec.Source]

	title := cleanText(n.lookup(rec, rules, FieldTitle))
	if title == "" {
		return domain.CanonicalArticle{}, fmt.Errorf("missing title")
	}

	rawURL := strings.TrimSpace(n.lookup(rec, rules, FieldURL))
	if rawURL == "" {
		return domain.CanonicalArticle{}, fmt.Errorf("missing url")
	}
	link, err := resolveURL(rules.BaseURL, rawURL)
	if err != nil {
		return domain.CanonicalArticle{}, err
	}

	return domain.CanonicalArticle{
		Title:      title,
		Summary:    cleanText(n.lookup(rec, rules, FieldSummary)),
		Category:   cleanText(n.lookup(rec, rules, FieldCategory)),
		URL:        link,
		SourceName: rec.Source,
	}, nil
}

func (n *Normalizer) lookup(rec domain.RawRecord, rules SourceRules, field string) string {
	if key, ok := rules.Fields[field]; ok {
		return stringValue(rec.Fields[key])
	}
	for _, key := range defaultAliases[field] {
		if v := stringValue(rec.Fields[key]); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (n *Normalizer) reject(res *Result, rec domain.RawRecord, index int, reason string) {
	link := strings.TrimSpace(n.lookup(rec, n.rules[rec.Source], FieldURL))
	if link == "" {
		link = fmt.Sprintf("%s#%d", rec.Source, index)
	}
	res.Rejected = append(res.Rejected, domain.ArticleFailure{
		URL:    link,
		Stage:  domain.StageNormalize,
		Reason: reason,
	})
	if n.logger != nil {
		n.logger.Warn("drop raw record", "source", rec.Source, "index", index, "url", link, "reason", reason)
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveURL(base, raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q without source base", raw)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid source base %q: %w", base, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
