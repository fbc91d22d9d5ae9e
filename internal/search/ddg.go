package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultEndpoint = "https://html.duckduckgo.com/html/"

	searchTimeout = 10 * time.Second

	// Video results waste the snippet budget, so they are excluded at the
	// query level.
	excludeFilter = " -site:youtube.com"
)

// ErrNoResults indicates the search completed but matched nothing.
var ErrNoResults = errors.New("no search results")

// DDG searches the DuckDuckGo HTML endpoint, which needs no API key.
type DDG struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// DDGOption configures a DDG provider.
type DDGOption func(*DDG)

// WithEndpoint overrides the search endpoint, for tests.
func WithEndpoint(endpoint string) DDGOption {
	return func(d *DDG) { d.endpoint = endpoint }
}

// NewDDG returns a DuckDuckGo search provider.
func NewDDG(logger *slog.Logger, opts ...DDGOption) *DDG {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DDG{
		httpClient: &http.Client{Timeout: searchTimeout},
		endpoint:   defaultEndpoint,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search runs the query and returns up to count results with title, snippet
// and resolved target URL.
func (d *DDG) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if count <= 0 {
		count = 4
	}

	form := url.Values{"q": {query + excludeFilter}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; concierge/1.0)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a")
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
			URL:     resolveRedirect(href),
		})
		return len(results) < count
	})

	if len(results) == 0 {
		return nil, ErrNoResults
	}

	d.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

// resolveRedirect unwraps the DuckDuckGo redirect links that wrap every
// result target in a uddg query parameter.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
