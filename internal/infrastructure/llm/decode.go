package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"NewsMerger/internal/domain"
)

// flexInt accepts 7, 7.0 or "7".
type flexInt int

func (f *flexInt) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
	} else {
		s = string(raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Models sometimes answer "8/10"; keep the leading number.
		head, _, _ := strings.Cut(s, "/")
		if v, err = strconv.ParseFloat(strings.TrimSpace(head), 64); err != nil {
			return fmt.Errorf("importance_level %q is not a number", s)
		}
	}
	*f = flexInt(int(v))
	return nil
}

// flexStrings accepts an array of strings or a comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '[' {
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(fmt.Sprint(it)); s != "" && it != nil {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*f = out
	return nil
}

type wireEntities struct {
	People        flexStrings `json:"people"`
	Organizations flexStrings `json:"organizations"`
	Locations     flexStrings `json:"locations"`
}

type wireAnalysis struct {
	Title           string       `json:"title"`
	Summary         string       `json:"summary"`
	FullText        string       `json:"full_text"`
	Category        string       `json:"category"`
	Sentiment       string       `json:"sentiment"`
	ImportanceLevel flexInt      `json:"importance_level"`
	Keywords        flexStrings  `json:"keywords"`
	NamedEntities   wireEntities `json:"named_entities"`
	DateTime        string       `json:"date_time"`
	Location        string       `json:"location"`
	Language        string       `json:"language"`
	ThumbnailURL    string       `json:"thumbnail_url"`
}

// DecodeAnalysis parses a model reply, tolerating markdown code fences and loose field types.
func DecodeAnalysis(reply string) (domain.Analysis, error) {
	body := stripFences(reply)
	if body == "" {
		return domain.Analysis{}, fmt.Errorf("empty analysis reply")
	}

	var w wireAnalysis
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse analysis reply: %w", err)
	}

	level := int(w.ImportanceLevel)
	if level < 0 {
		level = 0
	}
	if level > 10 {
		level = 10
	}

	return domain.Analysis{
		Title:           strings.TrimSpace(w.Title),
		Summary:         strings.TrimSpace(w.Summary),
		FullText:        strings.TrimSpace(w.FullText),
		Category:        strings.TrimSpace(w.Category),
		Sentiment:       strings.ToLower(strings.TrimSpace(w.Sentiment)),
		ImportanceLevel: level,
		Keywords:        []string(w.Keywords),
		NamedEntities: domain.NamedEntities{
			People:        []string(w.NamedEntities.People),
			Organizations: []string(w.NamedEntities.Organizations),
			Locations:     []string(w.NamedEntities.Locations),
		},
		DateTime:     strings.TrimSpace(w.DateTime),
		Location:     strings.TrimSpace(w.Location),
		Language:     strings.TrimSpace(w.Language),
		ThumbnailURL: strings.TrimSpace(w.ThumbnailURL),
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = ""
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
