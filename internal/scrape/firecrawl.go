package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/retry"
)

const (
	defaultFirecrawlURL = "https://api.firecrawl.dev"
	defaultPollInterval = 2 * time.Second
	defaultCrawlTimeout = 10 * time.Minute
)

// Ensure Firecrawl implements Scraper
var _ Scraper = (*Firecrawl)(nil)

// Firecrawl scrapes through the Firecrawl v1 REST API.
type Firecrawl struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	policy       retry.Policy
	logger       *slog.Logger
	pollInterval time.Duration
	crawlTimeout time.Duration
}

// NewFirecrawl creates a Firecrawl client.
func NewFirecrawl(apiKey, baseURL string, policy retry.Policy, logger *slog.Logger) (*Firecrawl, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("scrape: FIRECRAWL_API_KEY is required")
	}
	if baseURL == "" {
		baseURL = defaultFirecrawlURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Firecrawl{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 2 * time.Minute},
		policy:       policy,
		logger:       logger,
		pollInterval: defaultPollInterval,
		crawlTimeout: defaultCrawlTimeout,
	}, nil
}

type firecrawlDocument struct {
	Markdown string         `json:"markdown"`
	Metadata map[string]any `json:"metadata"`
}

type scrapeResponse struct {
	Success bool              `json:"success"`
	Data    firecrawlDocument `json:"data"`
	Error   string            `json:"error"`
}

type crawlStartResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

type crawlStatusResponse struct {
	Status string              `json:"status"`
	Total  int                 `json:"total"`
	Data   []firecrawlDocument `json:"data"`
	Next   string              `json:"next"`
	Error  string              `json:"error"`
}

// Scrape fetches one URL as Markdown.
func (f *Firecrawl) Scrape(ctx context.Context, rawURL string) (*models.Page, error) {
	pol := f.policy
	pol.OnRetry = retryLogger(f.logger, "scrape", rawURL)

	resp, err := retry.Do(ctx, pol, func(ctx context.Context) (*scrapeResponse, error) {
		var out scrapeResponse
		err := f.do(ctx, http.MethodPost, f.baseURL+"/v1/scrape", map[string]any{
			"url":     rawURL,
			"formats": []string{"markdown"},
		}, &out)
		if err != nil {
			return nil, classify(err)
		}
		if !out.Success {
			return nil, retry.Permanent(fmt.Errorf("firecrawl scrape: %s", out.Error))
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return f.toPage(resp.Data, rawURL), nil
}

// Crawl starts a crawl job and polls it until it completes, fails or times out.
func (f *Firecrawl) Crawl(ctx context.Context, rawURL string, opts CrawlOptions) ([]*models.Page, error) {
	pol := f.policy
	pol.OnRetry = retryLogger(f.logger, "crawl", rawURL)

	start, err := retry.Do(ctx, pol, func(ctx context.Context) (*crawlStartResponse, error) {
		var out crawlStartResponse
		err := f.do(ctx, http.MethodPost, f.baseURL+"/v1/crawl", map[string]any{
			"url":      rawURL,
			"limit":    opts.MaxPages,
			"maxDepth": opts.Depth,
			"scrapeOptions": map[string]any{
				"formats": []string{"markdown"},
			},
		}, &out)
		if err != nil {
			return nil, classify(err)
		}
		if !out.Success || out.ID == "" {
			return nil, retry.Permanent(fmt.Errorf("firecrawl crawl: %s", out.Error))
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	f.logger.Debug("crawl started", slog.String("url", rawURL), slog.String("job", start.ID))

	ctx, cancel := context.WithTimeout(ctx, f.crawlTimeout)
	defer cancel()

	docs, err := f.poll(ctx, f.baseURL+"/v1/crawl/"+start.ID)
	if err != nil {
		return nil, err
	}

	pages := make([]*models.Page, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Markdown) == "" {
			continue
		}
		pages = append(pages, f.toPage(d, rawURL))
	}
	return pages, nil
}

func (f *Firecrawl) poll(ctx context.Context, statusURL string) ([]firecrawlDocument, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		var status crawlStatusResponse
		if err := f.do(ctx, http.MethodGet, statusURL, nil, &status); err != nil {
			var se *statusError
			if errors.As(err, &se) && !retry.RetryableStatus(se.Status) {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("firecrawl crawl: %w", ctx.Err())
			}
			f.logger.Warn("crawl status check failed", slog.String("error", err.Error()))
		} else {
			switch status.Status {
			case "completed":
				return f.collect(ctx, status)
			case "failed", "cancelled":
				return nil, fmt.Errorf("firecrawl crawl %s: %s", status.Status, status.Error)
			}
			f.logger.Debug("crawl in progress",
				slog.String("status", status.Status),
				slog.Int("pages", len(status.Data)),
				slog.Int("total", status.Total),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("firecrawl crawl: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// collect follows "next" links of a completed crawl until all pages are read.
func (f *Firecrawl) collect(ctx context.Context, status crawlStatusResponse) ([]firecrawlDocument, error) {
	docs := status.Data
	next := status.Next
	for next != "" {
		var page crawlStatusResponse
		if err := f.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		docs = append(docs, page.Data...)
		next = page.Next
	}
	return docs, nil
}

func (f *Firecrawl) toPage(d firecrawlDocument, fallbackURL string) *models.Page {
	pageURL := fallbackURL
	for _, key := range []string{"sourceURL", "url"} {
		if v, ok := d.Metadata[key].(string); ok && v != "" {
			pageURL = v
			break
		}
	}
	return &models.Page{
		URL:       pageURL,
		Title:     titleFromMetadata(d.Metadata),
		Markdown:  d.Markdown,
		Metadata:  d.Metadata,
		ScrapedAt: time.Now(),
	}
}

func (f *Firecrawl) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return &statusError{Status: resp.StatusCode, Body: msg}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
