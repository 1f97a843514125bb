package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsMerger/internal/domain"
	"NewsMerger/internal/scanner"
)

const userAgent = "NewsMerger/1.0"

// HTMLScanner extracts listing cards from an outlet's section page with CSS selectors.
//
// Options: item, title, summary, link, category (selectors); pages and pageParam for pagination.
type HTMLScanner struct {
	client *http.Client
}

// NewHTMLScanner wires an HTTP client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan walks the configured number of listing pages and returns one record per card.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no listing url for source %s", req.Source)
	}

	pages, err := strconv.Atoi(req.Option("pages", "1"))
	if err != nil || pages < 1 {
		return nil, fmt.Errorf("source %s: invalid pages option %q", req.Source, req.Options["pages"])
	}

	var records []domain.RawRecord
	seen := map[string]struct{}{}

	for page := 1; page <= pages; page++ {
		pageURL, err := buildPageURL(req.URL, req.Option("pageParam", "page"), page)
		if err != nil {
			return nil, err
		}

		doc, err := h.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		found := 0
		for _, rec := range extractCards(doc, req) {
			link, _ := rec.Fields["link"].(string)
			if link != "" {
				if _, dup := seen[link]; dup {
					continue
				}
				seen[link] = struct{}{}
			}
			records = append(records, rec)
			found++
		}
		if found == 0 {
			break
		}
	}

	return records, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractCards(doc *goquery.Document, req scanner.Request) []domain.RawRecord {
	var (
		titleSel    = req.Option("title", "h2, h3")
		summarySel  = req.Option("summary", "p")
		linkSel     = req.Option("link", "a[href]")
		categorySel = req.Option("category", "")
		out         []domain.RawRecord
	)

	doc.Find(req.Option("item", "article")).Each(func(_ int, card *goquery.Selection) {
		fields := map[string]any{}

		if title := strings.TrimSpace(card.Find(titleSel).First().Text()); title != "" {
			fields["title"] = title
		}
		if summary := strings.TrimSpace(card.Find(summarySel).First().Text()); summary != "" {
			fields["summary"] = summary
		}

		href, ok := card.Find(linkSel).First().Attr("href")
		if !ok {
			href, _ = card.Attr("href")
		}
		if href = strings.TrimSpace(href); href != "" {
			fields["link"] = href
		}

		if categorySel != "" {
			if cat := strings.TrimSpace(card.Find(categorySel).First().Text()); cat != "" {
				fields["category"] = cat
			}
		}

		if len(fields) == 0 {
			return
		}
		out = append(out, domain.RawRecord{Source: req.Source, Fields: fields})
	})

	return out
}

func buildPageURL(base, param string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}
	if page <= 1 {
		return parsed.String(), nil
	}

	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
