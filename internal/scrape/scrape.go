// Package scrape fetches web pages as Markdown, either through the Firecrawl
// API or directly with a readability extractor.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/retry"
)

// Scraper providers accepted by New.
const (
	ProviderFirecrawl = "firecrawl"
	ProviderDirect    = "direct"
)

// Scraper turns URLs into Markdown pages.
type Scraper interface {
	// Scrape fetches a single page.
	Scrape(ctx context.Context, rawURL string) (*models.Page, error)
	// Crawl fetches rawURL and the pages it links to, breadth first.
	Crawl(ctx context.Context, rawURL string, opts CrawlOptions) ([]*models.Page, error)
}

// CrawlOptions bounds a crawl.
type CrawlOptions struct {
	Depth    int
	MaxPages int
}

// Single reports whether the options describe a plain single-page scrape.
func (o CrawlOptions) Single() bool {
	return o.Depth <= 0 && o.MaxPages <= 1
}

// Settings selects and configures a scraper.
type Settings struct {
	Provider        string
	FirecrawlAPIKey string
	FirecrawlURL    string
	PollInterval    time.Duration
	Timeout         time.Duration
	UserAgent       string
}

// New creates the configured scraper.
func New(s Settings, policy retry.Policy, logger *slog.Logger) (Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch s.Provider {
	case ProviderFirecrawl, "":
		fc, err := NewFirecrawl(s.FirecrawlAPIKey, s.FirecrawlURL, policy, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrConfig, err)
		}
		if s.PollInterval > 0 {
			fc.pollInterval = s.PollInterval
		}
		if s.Timeout > 0 {
			fc.crawlTimeout = s.Timeout
		}
		return fc, nil
	case ProviderDirect:
		d := NewDirect(policy, logger)
		if s.UserAgent != "" {
			d.userAgent = s.UserAgent
		}
		if s.Timeout > 0 {
			d.client.Timeout = s.Timeout
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unknown scraper provider %q", apperr.ErrConfig, s.Provider)
	}
}

// Fetch scrapes rawURL, or crawls it when opts allow more than one page, and
// returns a single page. Crawled pages are merged in crawl order. Errors wrap
// apperr.ErrScrape.
func Fetch(ctx context.Context, s Scraper, rawURL string, opts CrawlOptions) (*models.Page, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %v", apperr.ErrScrape, rawURL, err)
	}

	if opts.Single() {
		page, err := s.Scrape(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperr.ErrScrape, rawURL, err)
		}
		if strings.TrimSpace(page.Markdown) == "" {
			return nil, fmt.Errorf("%w: %s: %w", apperr.ErrScrape, rawURL, apperr.ErrEmptyContent)
		}
		return page, nil
	}

	if opts.Depth <= 0 {
		opts.Depth = 1
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	pages, err := s.Crawl(ctx, rawURL, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrScrape, rawURL, err)
	}
	var withContent []*models.Page
	for _, p := range pages {
		if strings.TrimSpace(p.Markdown) != "" {
			withContent = append(withContent, p)
		}
	}
	if len(withContent) == 0 {
		return nil, fmt.Errorf("%w: %s: no pages with content: %w", apperr.ErrScrape, rawURL, apperr.ErrEmptyContent)
	}
	return Merge(withContent), nil
}

// Merge combines crawled pages into the first one. With more than one page
// each becomes a "# Title" section with its source URL, separated by rules.
func Merge(pages []*models.Page) *models.Page {
	if len(pages) == 0 {
		return nil
	}
	first := *pages[0]
	if len(pages) == 1 {
		return &first
	}
	sections := make([]string, 0, len(pages))
	for _, p := range pages {
		sections = append(sections, fmt.Sprintf("# %s\n\nSource: %s\n\n%s", p.Title, p.URL, p.Markdown))
	}
	first.Markdown = strings.Join(sections, "\n\n---\n\n")
	return &first
}

// titleFromMetadata picks the page title the way Firecrawl reports it.
func titleFromMetadata(meta map[string]any) string {
	for _, key := range []string{"title", "ogTitle", "og_title"} {
		if v, ok := meta[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// statusError is a non-2xx HTTP response from a scraping upstream.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// classify marks non-retryable HTTP failures as permanent.
func classify(err error) error {
	if se, ok := err.(*statusError); ok && !retry.RetryableStatus(se.Status) {
		return retry.Permanent(err)
	}
	return err
}

func retryLogger(logger *slog.Logger, op, target string) func(int, error, time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		logger.Warn("scrape failed, retrying",
			slog.String("op", op),
			slog.String("url", target),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}
}
