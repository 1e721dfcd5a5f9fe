// Package noteservice exposes vault queries and pipeline runs to the HTTP
// API and the MCP server.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/index"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/parser"
	"github.com/starford/web2vault/internal/pipeline"
	"github.com/starford/web2vault/internal/storage"
	"github.com/starford/web2vault/internal/vault"
)

const defaultSearchLimit = 20

// Runner executes a pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Report
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Topics      []string       `json:"topics"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
}

// Service coordinates storage, the vault scanner and the pipeline. db is
// optional; without it search and backlinks fall back to reading files.
type Service struct {
	store   storage.Provider
	scanner *vault.Scanner
	runner  Runner
	db      *index.DB
	logger  *slog.Logger
}

// NewService creates a new note service.
func NewService(store storage.Provider, scanner *vault.Scanner, runner Runner, db *index.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, scanner: scanner, runner: runner, db: db, logger: logger}
}

// Generate validates req and runs the pipeline over it.
func (s *Service) Generate(ctx context.Context, req pipeline.Request) (pipeline.Report, error) {
	for i := range req.URLs {
		req.URLs[i] = strings.TrimSpace(req.URLs[i])
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.URLs, validation.Required, validation.Each(validation.Required, is.RequestURL)),
		validation.Field(&req.OutputName, validation.Length(0, 200)),
	)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if s.runner == nil {
		return pipeline.Report{}, errors.New("noteservice: no pipeline configured")
	}
	return s.runner.Run(ctx, req), nil
}

// ListNotes returns every vault note under folder, or all notes when folder
// is empty.
func (s *Service) ListNotes(ctx context.Context, folder string) ([]models.VaultNote, error) {
	ix, err := s.scanner.Scan(ctx, "")
	if err != nil {
		return nil, err
	}
	folder = strings.Trim(folder, "/")
	out := make([]models.VaultNote, 0, ix.Len())
	for _, n := range ix.Notes {
		if folder != "" && n.Folder != folder && !strings.HasPrefix(n.Folder, folder+"/") {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Search finds notes whose title, topics, tags or body contain query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if s.db != nil {
		if _, err := s.scanner.Scan(ctx, ""); err != nil {
			return nil, err
		}
		res, err := s.db.Search(query, limit)
		if err != nil {
			return nil, err
		}
		return nonNilSlice(res), nil
	}
	return s.searchFiles(ctx, query, limit)
}

func (s *Service) searchFiles(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	ix, err := s.scanner.Scan(ctx, "")
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var titled, other []index.SearchResult
	for _, n := range ix.Notes {
		data, err := s.store.Read(n.Path)
		if err != nil {
			continue
		}
		res, _ := parser.Parse(data)
		hit := index.SearchResult{Path: n.Path, Title: n.Title, Snippet: snippet(res.Body)}
		switch {
		case strings.Contains(strings.ToLower(n.Title), q):
			titled = append(titled, hit)
		case containsFold(n.Topics, q), containsFold(n.Tags, q), strings.Contains(strings.ToLower(res.Body), q):
			other = append(other, hit)
		}
	}
	out := append(titled, other...)
	if len(out) > limit {
		out = out[:limit]
	}
	return nonNilSlice(out), nil
}

// GetNote reads a note from storage, parses it, and enriches with backlinks.
func (s *Service) GetNote(ctx context.Context, notePath string) (*NoteDetail, error) {
	data, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(notePath), ".md")
	}
	bl, err := s.Backlinks(ctx, title)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        notePath,
		Title:       title,
		Content:     string(data),
		Checksum:    storage.Checksum(data),
		Tags:        nonNilSlice(res.Tags),
		Topics:      nonNilSlice(res.Topics),
		Frontmatter: res.Frontmatter,
		Backlinks:   bl,
	}, nil
}

// Backlinks returns the paths of notes that wikilink to title.
func (s *Service) Backlinks(ctx context.Context, title string) ([]string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", apperr.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db != nil {
		bl, err := s.db.Backlinks(title)
		if err != nil {
			return nil, err
		}
		return nonNilSlice(bl), nil
	}
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			continue
		}
		res, _ := parser.Parse(data)
		if slices.Contains(res.Links, title) {
			out = append(out, m.Path)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Related returns up to limit vault notes that share a topic with topics.
func (s *Service) Related(ctx context.Context, topics []string, limit int) ([]models.VaultNote, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", apperr.ErrInvalidInput)
	}
	ix, err := s.scanner.Scan(ctx, "")
	if err != nil {
		return nil, err
	}
	return nonNilSlice(ix.Related(topics, vault.DefaultMinSimilarity, limit)), nil
}

func containsFold(values []string, lowered string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowered) {
			return true
		}
	}
	return false
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	r := []rune(body)
	if len(r) > 200 {
		return string(r[:200])
	}
	return body
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
