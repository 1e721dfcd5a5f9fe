// Package vault reads the existing notes of an Obsidian vault so that new
// notes can reference them with wikilinks.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/web2vault/internal/index"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/storage"
)

// Scanner builds the title → topics view of a vault.
type Scanner struct {
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithIndex routes scans through the SQLite cache, which only re-parses
// notes whose checksum changed.
func WithIndex(db *index.DB) ScannerOption {
	return func(s *Scanner) { s.db = db }
}

// NewScanner returns a Scanner over store.
func NewScanner(store storage.Provider, logger *slog.Logger, opts ...ScannerOption) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{store: store, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan reads every note in the vault except those under exclude (a folder
// relative to the root; empty excludes nothing). Notes that cannot be read
// or parsed are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context, exclude string) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		notes []models.VaultNote
		err   error
	)
	if s.db != nil {
		notes, err = s.scanIndex()
	} else {
		notes, err = s.scanFiles()
	}
	if err != nil {
		return nil, fmt.Errorf("vault: scan: %w", err)
	}

	exclude = strings.Trim(strings.ReplaceAll(exclude, "\\", "/"), "/")
	kept := notes[:0]
	for _, n := range notes {
		if exclude != "" && (n.Folder == exclude || strings.HasPrefix(n.Folder, exclude+"/")) {
			continue
		}
		kept = append(kept, n)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Path < kept[j].Path })

	s.logger.Debug("vault scanned", slog.Int("notes", len(kept)), slog.String("excluded", exclude))
	return &Index{Notes: kept}, nil
}

func (s *Scanner) scanIndex() ([]models.VaultNote, error) {
	if err := index.Sync(s.db, s.store, s.logger); err != nil {
		return nil, err
	}
	rows, err := s.db.ListNotes("")
	if err != nil {
		return nil, err
	}
	out := make([]models.VaultNote, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

func (s *Scanner) scanFiles() ([]models.VaultNote, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	out := make([]models.VaultNote, 0, len(metas))
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			s.logger.Warn("vault: skipping unreadable note", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		row, _, err := index.RowFromFile(m.Path, data)
		if err != nil {
			s.logger.Warn("vault: skipping unparsable note", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		out = append(out, fromRow(row))
	}
	return out, nil
}

func fromRow(r index.NoteRow) models.VaultNote {
	folder := r.Folder
	if folder == "" {
		if d := path.Dir(r.Path); d != "." {
			folder = d
		}
	}
	return models.VaultNote{
		Path:   r.Path,
		Folder: folder,
		Title:  r.Title,
		Topics: orNil(r.Topics),
		Tags:   orNil(r.Tags),
	}
}

func orNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// Index is the result of a scan.
type Index struct {
	Notes []models.VaultNote
}

// Len returns the number of notes.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Notes)
}

// Topics maps every note title to its topic list.
func (ix *Index) Topics() map[string][]string {
	out := make(map[string][]string, ix.Len())
	if ix == nil {
		return out
	}
	for _, n := range ix.Notes {
		out[n.Title] = n.Topics
	}
	return out
}

// FormatForPrompt renders the index as the list the language model sees:
// one "- [[Title]] — Topics: a, b" line per note.
func (ix *Index) FormatForPrompt() string {
	if ix.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range ix.Notes {
		b.WriteString("- [[")
		b.WriteString(n.Title)
		b.WriteString("]]")
		if len(n.Topics) > 0 {
			b.WriteString(" — Topics: ")
			b.WriteString(strings.Join(n.Topics, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
