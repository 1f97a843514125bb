package parser

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsMerger/internal/domain"
	"NewsMerger/internal/scanner"
)

// RSSScanner reads an RSS or Atom feed. Option "limit" caps the number of items.
type RSSScanner struct {
	client *http.Client
}

// NewRSSScanner wires an HTTP client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches the feed and maps each entry to a raw record in feed order.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no feed url for source %s", req.Source)
	}
	limit, err := strconv.Atoi(req.Option("limit", "0"))
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("source %s: invalid limit option %q", req.Source, req.Options["limit"])
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", req.URL, resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(records) >= limit {
			break
		}
		records = append(records, domain.RawRecord{Source: req.Source, Fields: itemFields(item)})
	}
	return records, nil
}

func itemFields(item *gofeed.Item) map[string]any {
	fields := map[string]any{}
	if t := strings.TrimSpace(item.Title); t != "" {
		fields["title"] = t
	}
	if d := plainText(item.Description); d != "" {
		fields["description"] = d
	}
	if link := extractLink(item); link != "" {
		fields["link"] = link
	}
	if len(item.Categories) > 0 {
		fields["category"] = strings.TrimSpace(item.Categories[0])
	}
	if item.PublishedParsed != nil {
		fields["published"] = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return fields
}

// extractLink prefers the explicit link and falls back to a URL-shaped GUID.
func extractLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if strings.HasPrefix(item.GUID, "http") {
		return item.GUID
	}
	return ""
}

// plainText strips markup that feeds often embed in descriptions.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
