// Package writer stores formatted notes in the vault.
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/formatter"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/storage"
)

const fallbackName = "untitled"

// Writer writes note bundles through a storage provider.
type Writer struct {
	store  storage.Provider
	logger *slog.Logger
}

// New returns a Writer over store.
func New(store storage.Provider, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, logger: logger}
}

// Write writes each note to "<folder>/<file name>.md" and records the
// vault-relative path on the note. File names repeated within the call get
// " 2", " 3" suffixes. A failed note does not stop the others; the
// failures are returned joined as *NoteError values.
func (w *Writer) Write(folder string, notes []models.GeneratedNote) ([]string, error) {
	folder = SanitizeFileName(folder)
	used := make(map[string]struct{}, len(notes))

	var (
		written []string
		errs    []error
	)
	for i := range notes {
		n := &notes[i]
		name := uniqueName(used, SanitizeFileName(n.FileName))
		rel := path.Join(folder, name+".md")

		if err := w.store.Write(rel, []byte(n.Content)); err != nil {
			w.logger.Error("writing note failed", slog.String("path", rel), slog.String("error", err.Error()))
			errs = append(errs, &NoteError{Type: n.Type, File: name + ".md", Err: err})
			continue
		}
		n.Path = rel
		written = append(written, rel)
		w.logger.Debug("note written", slog.String("path", rel))
	}
	return written, errors.Join(errs...)
}

// NoteError is the failure to write one note. It matches apperr.ErrWrite.
type NoteError struct {
	Type models.NoteType
	File string
	Err  error
}

func (e *NoteError) Error() string {
	return fmt.Sprintf("%v: %s: %v", apperr.ErrWrite, e.File, e.Err)
}

func (e *NoteError) Unwrap() []error {
	return []error{apperr.ErrWrite, e.Err}
}

// NoteErrors returns the per-note failures contained in an error returned
// by Write.
func NoteErrors(err error) []*NoteError {
	if err == nil {
		return nil
	}
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		if _, single := err.(*NoteError); !single {
			errs = j.Unwrap()
		}
	}
	if errs == nil {
		errs = []error{err}
	}
	var out []*NoteError
	for _, e := range errs {
		var ne *NoteError
		if errors.As(e, &ne) {
			out = append(out, ne)
		}
	}
	return out
}

// Dir returns the absolute path of folder inside the vault.
func (w *Writer) Dir(folder string) string {
	return path.Join(filepath.ToSlash(w.store.Root()), SanitizeFileName(folder))
}

func uniqueName(used map[string]struct{}, name string) string {
	candidate := name
	for i := 2; ; i++ {
		key := strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", name, i)
	}
}

// FolderName picks the output folder for a page: the explicit output name
// when given, otherwise the slug of the page title, then of the last URL
// path segment, then the host without "www.".
func FolderName(outputName, title, rawURL string) string {
	if name := SanitizeFileName(outputName); strings.TrimSpace(outputName) != "" && name != fallbackName {
		return name
	}
	if s := formatter.SlugOr(title, ""); s != "" {
		return s
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackName
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		if s := formatter.SlugOr(strings.TrimSuffix(last, path.Ext(last)), ""); s != "" {
			return s
		}
	}
	if host := strings.TrimPrefix(u.Hostname(), "www."); host != "" {
		return SanitizeFileName(host)
	}
	return fallbackName
}

// SanitizeFileName removes characters that are invalid in file names on
// common file systems, and leading or trailing dots and spaces.
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return fallbackName
	}
	return name
}
