package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"NewsMerger/internal/config"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/scanner"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://bangla.thedailystar.net/todays-news?lang=bn"
	first, err := buildPageURL(base, "page", 1)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}
	if first != base {
		t.Fatalf("first page must be the base url, got %s", first)
	}

	u, err := buildPageURL(base, "page", 3)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	q := parsed.Query()
	if q.Get("page") != "3" || q.Get("lang") != "bn" {
		t.Fatalf("unexpected query: %s", parsed.RawQuery)
	}
}

const listingPage = `
<html><body>
  <div class="card">
    <h3><a href="/news/flood-1">প্রধানমন্ত্রী বন্যা এলাকা পরিদর্শন করলেন</a></h3>
    <p class="intro">Prime Minister tours flood-affected district.</p>
    <span class="section">National</span>
  </div>
  <div class="card">
    <h3><a href="/news/market">Stock market rises</a></h3>
    <p class="intro">DSEX gained 40 points.</p>
  </div>
  <div class="card">
    <h3><a href="/news/flood-1">duplicate card</a></h3>
  </div>
</body></html>`

func TestHTMLScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "" {
			_, _ = w.Write([]byte(`<html><body></body></html>`))
			return
		}
		_, _ = w.Write([]byte(listingPage))
	}))
	defer server.Close()

	sc := NewHTMLScanner(server.Client())
	records, err := sc.Scan(context.Background(), scanner.Request{
		Source: domain.SourceDailyStar,
		URL:    server.URL + "/todays-news",
		Options: map[string]string{
			"item":     "div.card",
			"title":    "h3",
			"summary":  "p.intro",
			"link":     "h3 a",
			"category": "span.section",
			"pages":    "3",
		},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	first := records[0]
	if first.Source != domain.SourceDailyStar {
		t.Fatalf("unexpected source: %s", first.Source)
	}
	if first.Fields["link"] != "/news/flood-1" || first.Fields["category"] != "National" {
		t.Fatalf("unexpected fields: %+v", first.Fields)
	}
	if first.Fields["summary"] != "Prime Minister tours flood-affected district." {
		t.Fatalf("unexpected summary: %v", first.Fields["summary"])
	}
	if _, ok := records[1].Fields["category"]; ok {
		t.Fatalf("category must be absent when the card has none")
	}
}

func TestHTMLScannerRejectsBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTMLScanner(server.Client()).Scan(context.Background(), scanner.Request{URL: server.URL})
	if err == nil {
		t.Fatal("expected error for 502")
	}
}

const feedBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Prothom Alo</title>
  <item>
    <title>Prime Minister tours flood-affected district</title>
    <link>https://www.prothomalo.com/bangladesh/flood</link>
    <description><![CDATA[<p>Relief distributed in <b>Sylhet</b>.</p>]]></description>
    <category>Bangladesh</category>
    <pubDate>Fri, 01 Aug 2025 06:00:00 +0600</pubDate>
  </item>
  <item>
    <title>Stock market rises</title>
    <guid>https://www.prothomalo.com/business/market</guid>
    <description>DSEX gained.</description>
  </item>
  <item>
    <title>Third</title>
    <link>https://www.prothomalo.com/x</link>
  </item>
</channel>
</rss>`

func TestRSSScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer server.Close()

	records, err := NewRSSScanner(server.Client()).Scan(context.Background(), scanner.Request{
		Source:  domain.SourceProthomAlo,
		URL:     server.URL,
		Options: map[string]string{"limit": "2"},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0].Fields
	if first["description"] != "Relief distributed in Sylhet." {
		t.Fatalf("markup not stripped: %q", first["description"])
	}
	if first["category"] != "Bangladesh" || first["published"] != "2025-08-01T00:00:00Z" {
		t.Fatalf("unexpected fields: %+v", first)
	}
	if records[1].Fields["link"] != "https://www.prothomalo.com/business/market" {
		t.Fatalf("guid fallback not applied: %+v", records[1].Fields)
	}
}

type fakeScanner struct {
	records []domain.RawRecord
	got     scanner.Request
}

func (f *fakeScanner) Name() string { return "fake" }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	f.got = req
	return f.records, nil
}

func TestStrategySourceFetchSource(t *testing.T) {
	t.Parallel()

	fake := &fakeScanner{records: []domain.RawRecord{{Fields: map[string]any{"title": "x"}}}}
	reg := scanner.NewRegistry()
	reg.Register(fake)

	src := NewStrategySource(reg, []config.SourceConfig{
		{Name: "dailystar", Scanner: "fake", URL: "https://example.com", Options: map[string]string{"item": "li"}},
		{Name: "prothomalo", Scanner: "missing"},
	}, nil)

	if got := src.Sources(); len(got) != 2 || got[0] != domain.SourceDailyStar {
		t.Fatalf("unexpected sources %v", got)
	}

	records, err := src.FetchSource(context.Background(), domain.SourceDailyStar)
	if err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}
	if records[0].Source != domain.SourceDailyStar {
		t.Fatalf("source not stamped: %+v", records[0])
	}
	if fake.got.URL != "https://example.com" || fake.got.Options["item"] != "li" {
		t.Fatalf("unexpected request %+v", fake.got)
	}

	if _, err := src.FetchSource(context.Background(), domain.SourceProthomAlo); err == nil {
		t.Fatal("expected unregistered scanner error")
	}
	if _, err := src.FetchSource(context.Background(), "bdnews"); err == nil {
		t.Fatal("expected unknown source error")
	}
}
