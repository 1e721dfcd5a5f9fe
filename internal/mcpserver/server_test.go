package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/web2vault/internal/generate"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/noteservice"
	"github.com/starford/web2vault/internal/pipeline"
	"github.com/starford/web2vault/internal/scrape"
	"github.com/starford/web2vault/internal/storage"
	"github.com/starford/web2vault/internal/testutil"
	"github.com/starford/web2vault/internal/vault"
	"github.com/starford/web2vault/internal/writer"
)

type oneScraper struct{}

func (oneScraper) Scrape(_ context.Context, rawURL string) (*models.Page, error) {
	return &models.Page{URL: rawURL, Title: "Closures", Markdown: "# Closures\n\n## Capture\n\nFunctions capture variables.\n"}, nil
}

func (s oneScraper) Crawl(ctx context.Context, rawURL string, _ scrape.CrawlOptions) ([]*models.Page, error) {
	p, _ := s.Scrape(ctx, rawURL)
	return []*models.Page{p}, nil
}

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	scanner := vault.NewScanner(store, nil, vault.WithIndex(db))
	p := pipeline.New(oneScraper{}, scanner, generate.Defaults(testutil.NewFakeLLM(), nil), writer.New(store, nil))

	srv := New(noteservice.NewService(store, scanner, p, db, nil), "test")
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "generate_notes":
		result, err = srv.generateNotes(ctx, req)
	case "list_vault_notes":
		result, err = srv.listVaultNotes(ctx, req)
	case "search_vault":
		result, err = srv.searchVault(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "find_related_notes":
		result, err = srv.findRelatedNotes(ctx, req)
	case "get_note_format":
		result, err = srv.getNoteFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGenerateNotes(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "generate_notes", map[string]interface{}{
		"url":         "https://example.com/closures",
		"output_name": "Go Closures",
	})
	if r.IsError {
		t.Fatalf("generate failed: %s", resultText(r))
	}
	var rep pipeline.Report
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if len(rep.Results) != 1 || len(rep.Results[0].Written) != 5 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if ok, _ := store.Exists("Go Closures/Deep Dive.md"); !ok {
		t.Error("Deep Dive.md not written")
	}
}

func TestGenerateNotes_InvalidURL(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "generate_notes", map[string]interface{}{"url": "closures"})
	if !r.IsError {
		t.Error("expected error for relative URL")
	}
	r = callTool(t, srv, "generate_notes", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing url")
	}
}

func TestListVaultNotes(t *testing.T) {
	srv, store := testServer(t)
	testutil.WriteNote(t, store, "Go/Channels.md", "# Channels\n\n## Select\n")
	testutil.WriteNote(t, store, "Rust/Traits.md", "# Traits\n")

	text := resultText(callTool(t, srv, "list_vault_notes", map[string]interface{}{}))
	if !strings.Contains(text, "Go/Channels.md — Channels (topics: Select)") {
		t.Errorf("list = %q", text)
	}
	if !strings.Contains(text, "Rust/Traits.md") {
		t.Errorf("list misses Rust/Traits.md: %q", text)
	}

	text = resultText(callTool(t, srv, "list_vault_notes", map[string]interface{}{"folder": "Rust"}))
	if strings.Contains(text, "Channels") {
		t.Errorf("folder filter ignored: %q", text)
	}

	text = resultText(callTool(t, srv, "list_vault_notes", map[string]interface{}{"folder": "Python"}))
	if text != "no notes found" {
		t.Errorf("empty folder = %q", text)
	}
}

func TestSearchVault(t *testing.T) {
	srv, store := testServer(t)
	testutil.WriteNote(t, store, "Go/Channels.md", "# Channels\n\nUnbuffered channels block.\n")

	r := callTool(t, srv, "search_vault", map[string]interface{}{"query": "unbuffered", "limit": 5})
	var hits []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("search result is not JSON: %v", err)
	}
	if len(hits) != 1 || hits[0]["path"] != "Go/Channels.md" {
		t.Errorf("hits = %v", hits)
	}
}

func TestReadNote(t *testing.T) {
	srv, store := testServer(t)
	testutil.WriteNote(t, store, "a.md", "# A\nHello")

	if text := resultText(callTool(t, srv, "read_note", map[string]interface{}{"path": "a.md"})); text != "# A\nHello" {
		t.Errorf("read result = %q", text)
	}
	if r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"}); !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, store := testServer(t)
	testutil.WriteNote(t, store, "a.md", "# A\n\nlinks to [[B]]")
	testutil.WriteNote(t, store, "b.md", "# B\n")
	// Listing syncs the index.
	_ = callTool(t, srv, "list_vault_notes", map[string]interface{}{})

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"title": "B"})
	if text := resultText(r); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"title": "A"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestFindRelatedNotes(t *testing.T) {
	srv, store := testServer(t)
	testutil.WriteNote(t, store, "Go/Channels.md", "# Channels\n\n## Select Statement\n")
	testutil.WriteNote(t, store, "Rust/Traits.md", "# Traits\n")

	r := callTool(t, srv, "find_related_notes", map[string]interface{}{"topics": "select statement, lifetimes"})
	if text := resultText(r); text != "[[Channels]] — Go/Channels.md" {
		t.Errorf("related = %q", text)
	}
	r = callTool(t, srv, "find_related_notes", map[string]interface{}{"topics": " , "})
	if !r.IsError {
		t.Error("expected error for empty topics")
	}
}

func TestGetNoteFormat(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_note_format", nil))
	if !strings.Contains(text, "Practice Questions.md") || !strings.Contains(text, "type: summary") {
		t.Errorf("format text missing expected content")
	}
}
