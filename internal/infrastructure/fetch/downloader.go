// Package fetch downloads article pages and reduces them to readable text.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsMerger/internal/ports"
)

// DefaultMaxRunes caps the text handed to the analyzer.
const DefaultMaxRunes = 8000

// PageDownloader implements ports.Downloader over plain HTTP.
type PageDownloader struct {
	client   *http.Client
	maxRunes int
}

var _ ports.Downloader = (*PageDownloader)(nil)

// NewPageDownloader wires an HTTP client; maxRunes <= 0 selects DefaultMaxRunes.
func NewPageDownloader(client *http.Client, maxRunes int) *PageDownloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &PageDownloader{client: client, maxRunes: maxRunes}
}

// Download returns the text of the page's <article> (or <body>) without scripts and navigation.
func (d *PageDownloader) Download(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsMerger/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	text := Readable(doc)
	if text == "" {
		return "", fmt.Errorf("%s has no readable text", pageURL)
	}
	if runes := []rune(text); len(runes) > d.maxRunes {
		text = string(runes[:d.maxRunes])
	}
	return text, nil
}

// Readable extracts paragraph text from the main content region.
func Readable(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	root.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapse(root.Text())
	}
	return strings.Join(parts, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
