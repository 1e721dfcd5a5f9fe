package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func articleHTML(title, body, links string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>%s</title></head><body>
<nav>%s</nav>
<article><h1>%s</h1>
<p>%s</p>
<p>%s</p>
<p>%s</p>
</article></body></html>`, title, links, title, body, body, body)
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	para := strings.Repeat("Aviation history is full of remarkable pioneers who changed the world. ", 6)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(articleHTML("Home Page", para, `<a href="/a">A</a> <a href="/b#frag">B</a> <a href="https://other.test/x">X</a>`)))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML("Page A", para, `<a href="/deep">Deep</a>`)))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML("Page B", para, "")))
	})
	mux.HandleFunc("/deep", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML("Deep Page", para, "")))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDirect_Scrape(t *testing.T) {
	srv := newSite(t)
	d := NewDirect(fastPolicy(), nil)

	page, err := d.Scrape(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if !strings.Contains(page.Title, "Home Page") {
		t.Errorf("title = %q", page.Title)
	}
	if !strings.Contains(page.Markdown, "remarkable pioneers") {
		t.Errorf("markdown = %q", page.Markdown)
	}
}

func TestDirect_ScrapeNotFound(t *testing.T) {
	srv := newSite(t)
	d := NewDirect(fastPolicy(), nil)
	if _, err := d.Scrape(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestDirect_CrawlSameHostWithinDepth(t *testing.T) {
	srv := newSite(t)
	d := NewDirect(fastPolicy(), nil)

	pages, err := d.Crawl(context.Background(), srv.URL+"/", CrawlOptions{Depth: 1, MaxPages: 10})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("len(pages) = %d, want 3 (root, a, b)", len(pages))
	}
	for _, p := range pages {
		if strings.Contains(p.URL, "deep") || strings.Contains(p.URL, "other.test") {
			t.Errorf("crawled %s beyond depth or host", p.URL)
		}
	}
}

func TestDirect_CrawlRespectsMaxPages(t *testing.T) {
	srv := newSite(t)
	d := NewDirect(fastPolicy(), nil)

	pages, err := d.Crawl(context.Background(), srv.URL+"/", CrawlOptions{Depth: 3, MaxPages: 2})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("len(pages) = %d, want 2", len(pages))
	}
}
