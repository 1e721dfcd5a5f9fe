package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/retry"
)

const (
	defaultUserAgent = "web2vault/1.0 (+https://github.com/starford/web2vault)"
	maxBodyBytes     = 10 << 20
)

// Ensure Direct implements Scraper
var _ Scraper = (*Direct)(nil)

// Direct fetches pages itself and extracts the main article with
// go-readability. Crawling follows same-host links breadth first.
type Direct struct {
	client    *http.Client
	userAgent string
	policy    retry.Policy
	logger    *slog.Logger
}

// NewDirect creates a Direct scraper.
func NewDirect(policy retry.Policy, logger *slog.Logger) *Direct {
	if logger == nil {
		logger = slog.Default()
	}
	return &Direct{
		client:    &http.Client{Timeout: time.Minute},
		userAgent: defaultUserAgent,
		policy:    policy,
		logger:    logger,
	}
}

// Scrape fetches rawURL and converts its main content to Markdown.
func (d *Direct) Scrape(ctx context.Context, rawURL string) (*models.Page, error) {
	page, _, err := d.fetch(ctx, rawURL)
	return page, err
}

// Crawl fetches rawURL and follows links on the same host up to opts.Depth
// hops, stopping after opts.MaxPages pages.
func (d *Direct) Crawl(ctx context.Context, rawURL string, opts CrawlOptions) ([]*models.Page, error) {
	root, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	type item struct {
		url   string
		depth int
	}
	queue := []item{{url: normalizeURL(root), depth: 0}}
	seen := map[string]bool{queue[0].url: true}
	var pages []*models.Page

	for len(queue) > 0 && len(pages) < opts.MaxPages {
		cur := queue[0]
		queue = queue[1:]

		page, links, err := d.fetch(ctx, cur.url)
		if err != nil {
			if len(pages) == 0 {
				return nil, err
			}
			d.logger.Warn("crawl page failed", slog.String("url", cur.url), slog.String("error", err.Error()))
			continue
		}
		pages = append(pages, page)

		if cur.depth >= opts.Depth {
			continue
		}
		for _, l := range links {
			if l.Host != root.Host || seen[normalizeURL(l)] {
				continue
			}
			seen[normalizeURL(l)] = true
			queue = append(queue, item{url: normalizeURL(l), depth: cur.depth + 1})
		}
	}
	return pages, nil
}

func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

// fetch downloads rawURL with retries and returns the page and the absolute
// http(s) links found in the original HTML.
func (d *Direct) fetch(ctx context.Context, rawURL string) (*models.Page, []*url.URL, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse url: %w", err)
	}

	pol := d.policy
	pol.OnRetry = retryLogger(d.logger, "fetch", rawURL)
	body, err := retry.Do(ctx, pol, func(ctx context.Context) ([]byte, error) {
		b, err := d.get(ctx, rawURL)
		return b, classify(err)
	})
	if err != nil {
		return nil, nil, err
	}

	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("extract article: %w", err)
	}
	markdown, err := HTMLToMarkdown(article.Content)
	if err != nil {
		return nil, nil, err
	}

	links, err := extractLinks(body, pageURL)
	if err != nil {
		return nil, nil, err
	}

	meta := map[string]any{"sourceURL": rawURL}
	if article.Title != "" {
		meta["title"] = article.Title
	}
	if article.SiteName != "" {
		meta["siteName"] = article.SiteName
	}
	if article.Byline != "" {
		meta["author"] = article.Byline
	}
	if article.Excerpt != "" {
		meta["description"] = article.Excerpt
	}

	return &models.Page{
		URL:       rawURL,
		Title:     strings.TrimSpace(article.Title),
		Markdown:  markdown,
		Metadata:  meta,
		ScrapedAt: time.Now(),
	}, links, nil
}

func (d *Direct) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func extractLinks(body []byte, base *url.URL) ([]*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var out []*url.URL
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		out = append(out, abs)
	})
	return out, nil
}
