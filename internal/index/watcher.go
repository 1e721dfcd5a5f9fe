package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/web2vault/internal/storage"
)

// DefaultSettle is how long the watcher waits after the last file event
// before it touches the index. A run writes its notes back to back, so the
// whole folder lands in one batch.
const DefaultSettle = 250 * time.Millisecond

// EventCallback is called after a watcher-driven index change with one of
// the Change kinds and the vault-relative path.
type EventCallback func(kind string, path string)

// WatchOption configures Watch.
type WatchOption func(*watchState)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) WatchOption {
	return func(s *watchState) {
		if d > 0 {
			s.settle = d
		}
	}
}

type watchState struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	settle time.Duration

	dirty  map[string]struct{}
	resync bool
}

// Watch keeps the index in step with the vault until ctx is cancelled, so
// that scans made by runs in serve mode see notes edited in the meantime.
//
// Events are collected until the vault has been quiet for the settle
// period, then every touched note is re-read once. Removing or renaming a
// directory triggers a full reconcile since fsnotify reports only the
// directory itself. Hidden directories such as .obsidian are never watched.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback, opts ...WatchOption) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := watchTree(w, vaultRoot); err != nil {
		return err
	}

	s := &watchState{
		db:     db,
		store:  store,
		root:   vaultRoot,
		logger: logger,
		cb:     cb,
		settle: DefaultSettle,
		dirty:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	timer := time.NewTimer(s.settle)
	timer.Stop()
	defer timer.Stop()

	logger.Info("watcher: started", slog.String("root", vaultRoot), slog.Duration("settle", s.settle))
	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			s.flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if s.observe(w, ev) {
				timer.Reset(s.settle)
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// observe records ev and reports whether the index may need work.
func (s *watchState) observe(w *fsnotify.Watcher, ev fsnotify.Event) bool {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil || hidden(rel) {
		return false
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := watchTree(w, ev.Name); err != nil {
				s.logger.Warn("watcher: add dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			// Files may have landed before the directory was watched.
			s.resync = true
			return true
		}
	}

	if !strings.HasSuffix(ev.Name, ".md") {
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			s.resync = true
			return true
		}
		return false
	}
	s.dirty[filepath.ToSlash(rel)] = struct{}{}
	return true
}

func (s *watchState) flush() {
	var changes []Change
	if s.resync {
		all, err := reconcile(s.db, s.store, s.logger)
		if err != nil {
			s.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		}
		changes = all
	} else {
		paths := make([]string, 0, len(s.dirty))
		for p := range s.dirty {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		for _, p := range paths {
			ch, err := refresh(s.db, s.store, p)
			if err != nil {
				s.logger.Warn("watcher: refresh failed", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			if ch != nil {
				changes = append(changes, *ch)
			}
		}
	}
	s.resync = false
	clear(s.dirty)

	for _, ch := range changes {
		s.logger.Debug("watcher: indexed", slog.String("path", ch.Path), slog.String("op", ch.Kind))
		if s.cb != nil {
			s.cb(ch.Kind, ch.Path)
		}
	}
}

// watchTree adds root and its non-hidden subdirectories to w.
func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.Add(p)
	})
}

// hidden reports whether rel is, or sits under, a dot-prefixed entry.
func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
