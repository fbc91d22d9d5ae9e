// Package search provides web search and page content extraction for the
// assistant's research tools. Search results come from the DuckDuckGo HTML
// endpoint; full page text is fetched with a polite crawler and reduced to
// readable article content.
package search

import "context"

// Result is one web search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Provider performs a web search and returns up to count results.
type Provider interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Extractor fetches a URL and returns its readable text content.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}
