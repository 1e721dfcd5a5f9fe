package index

import (
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/web2vault/internal/parser"
	"github.com/starford/web2vault/internal/storage"
)

// Change kinds.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Change is one index mutation.
type Change struct {
	Kind string
	Path string
}

// Sync brings the index up to date with every note in the vault.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	_, err := reconcile(db, store, logger)
	return err
}

// reconcile diffs the vault against the stored checksums, re-indexes notes
// whose content changed and drops rows for notes that are gone.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger) ([]Change, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var changes []Change
	seen := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		seen[m.Path] = struct{}{}
		prev, indexed := known[m.Path]
		if prev == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		kind := ChangeCreated
		if indexed {
			kind = ChangeUpdated
		}
		changes = append(changes, Change{Kind: kind, Path: m.Path})
	}

	for p := range known {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		changes = append(changes, Change{Kind: ChangeDeleted, Path: p})
	}

	logger.Debug("sync: done", slog.Int("notes", len(metas)), slog.Int("changes", len(changes)))
	return changes, nil
}

// refresh re-reads a single note. Unchanged content yields no Change.
func refresh(db *DB, store storage.Provider, rel string) (*Change, error) {
	prev, err := db.GetChecksum(rel)
	if err != nil {
		return nil, err
	}
	data, err := store.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		if prev == "" {
			return nil, nil
		}
		if err := db.DeleteNote(rel); err != nil {
			return nil, err
		}
		return &Change{Kind: ChangeDeleted, Path: rel}, nil
	}
	if err != nil {
		return nil, err
	}
	if prev == storage.Checksum(data) {
		return nil, nil
	}
	if err := indexFile(db, rel, data); err != nil {
		return nil, err
	}
	if prev == "" {
		return &Change{Kind: ChangeCreated, Path: rel}, nil
	}
	return &Change{Kind: ChangeUpdated, Path: rel}, nil
}

// RowFromFile parses a vault file into its index row. The title falls back
// to the file stem when the note has neither a frontmatter title nor an H1.
func RowFromFile(relPath string, data []byte) (NoteRow, *parser.Result, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return NoteRow{}, nil, err
	}
	relPath = strings.ReplaceAll(relPath, "\\", "/")

	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(relPath), ".md")
	}
	folder := path.Dir(relPath)
	if folder == "." {
		folder = ""
	}
	return NoteRow{
		Path:      relPath,
		Title:     title,
		Folder:    folder,
		Checksum:  storage.Checksum(data),
		Tags:      res.Tags,
		Topics:    res.Topics,
		UpdatedAt: time.Now().UTC(),
	}, res, nil
}

func indexFile(db *DB, relPath string, data []byte) error {
	row, res, err := RowFromFile(relPath, data)
	if err != nil {
		return err
	}
	return db.UpsertNote(row, res.Body, res.Links)
}
