package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/realtyai/concierge/internal/config"
)

// ErrEmptyContent indicates a page fetched fine but yielded no readable text.
var ErrEmptyContent = errors.New("no readable content")

// PageExtractor fetches pages with a rate-limited crawler and extracts the
// readable article text, dropping navigation, ads and boilerplate.
type PageExtractor struct {
	parallelism int
	delay       time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// NewPageExtractor returns an extractor honoring the crawler limits in cfg.
func NewPageExtractor(cfg config.ScraperConfig, logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 2
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PageExtractor{
		parallelism: parallelism,
		delay:       time.Duration(cfg.DelayMs) * time.Millisecond,
		timeout:     timeout,
		logger:      logger,
	}
}

// Extract downloads the page at rawURL and returns its readable text.
func (p *PageExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (compatible; concierge/1.0)"),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(p.timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: p.parallelism,
		Delay:       p.delay,
	}); err != nil {
		return "", fmt.Errorf("configure crawler: %w", err)
	}

	var body []byte
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	if len(body) == 0 {
		return "", ErrEmptyContent
	}

	article, err := readability.FromReader(bytes.NewReader(body), target)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", ErrEmptyContent
	}

	p.logger.Debug("extracted page content", "url", rawURL, "chars", len(text))
	return text, nil
}
