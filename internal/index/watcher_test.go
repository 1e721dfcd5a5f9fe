package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/web2vault/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// startWatcher runs Watch over a fresh vault until the test ends.
func startWatcher(t *testing.T, seed map[string]string) (string, *DB, *recorder) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	require.NoError(t, err)
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	for rel, content := range seed {
		require.NoError(t, store.Write(rel, []byte(content)))
	}
	require.NoError(t, Sync(db, store, logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rec := &recorder{}
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, vaultDir, logger, rec.record, WithSettle(50*time.Millisecond))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give fsnotify time to register the tree.
	time.Sleep(100 * time.Millisecond)
	return vaultDir, db, rec
}

func indexed(db *DB, rel string) bool {
	cs, _ := db.GetChecksum(rel)
	return cs != ""
}

func TestWatch_RunFolderIndexed(t *testing.T) {
	vaultDir, db, rec := startWatcher(t, nil)

	// A run creates its folder and writes the notes through storage.
	store, err := storage.NewFS(vaultDir)
	require.NoError(t, err)
	for _, name := range []string{"Summary.md", "Deep Dive.md", "Q&A.md"} {
		require.NoError(t, store.Write("Goroutines/"+name, []byte("# Goroutines "+name)))
	}

	require.Eventually(t, func() bool {
		return indexed(db, "Goroutines/Summary.md") &&
			indexed(db, "Goroutines/Deep Dive.md") &&
			indexed(db, "Goroutines/Q&A.md")
	}, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		return slices.Contains(rec.snapshot(), "created:Goroutines/Summary.md")
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWatch_BurstCoalesced(t *testing.T) {
	vaultDir, db, rec := startWatcher(t, nil)

	p := filepath.Join(vaultDir, "draft.md")
	for i := range 5 {
		require.NoError(t, os.WriteFile(p, []byte("# Draft\n\nversion "+string(rune('a'+i))), 0o644))
	}

	require.Eventually(t, func() bool { return indexed(db, "draft.md") }, 5*time.Second, 50*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"created:draft.md"}, rec.snapshot())
}

func TestWatch_UpdateAndDelete(t *testing.T) {
	vaultDir, db, rec := startWatcher(t, map[string]string{"note.md": "# Note\n"})
	before, _ := db.GetChecksum("note.md")
	require.NotEmpty(t, before)

	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "note.md"), []byte("# Note\n\n## Added\n"), 0o644))
	require.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("note.md")
		return cs != "" && cs != before
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(vaultDir, "note.md")))
	require.Eventually(t, func() bool { return !indexed(db, "note.md") }, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		ev := rec.snapshot()
		return slices.Contains(ev, "updated:note.md") && slices.Contains(ev, "deleted:note.md")
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWatch_RenameNote(t *testing.T) {
	vaultDir, db, _ := startWatcher(t, map[string]string{"old.md": "# Rename\n"})

	require.NoError(t, os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md")))

	require.Eventually(t, func() bool {
		return !indexed(db, "old.md") && indexed(db, "renamed.md")
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_RenameFolderReconciles(t *testing.T) {
	vaultDir, db, _ := startWatcher(t, map[string]string{
		"Rust/Ownership.md": "# Ownership\n",
		"Rust/Borrowing.md": "# Borrowing\n",
	})

	require.NoError(t, os.Rename(filepath.Join(vaultDir, "Rust"), filepath.Join(vaultDir, "Rust Book")))

	require.Eventually(t, func() bool {
		return !indexed(db, "Rust/Ownership.md") && !indexed(db, "Rust/Borrowing.md") &&
			indexed(db, "Rust Book/Ownership.md") && indexed(db, "Rust Book/Borrowing.md")
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_IgnoresHidden(t *testing.T) {
	vaultDir, db, rec := startWatcher(t, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(vaultDir, ".obsidian"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, ".obsidian", "workspace.md"), []byte("# W"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "visible.md"), []byte("# Visible"), 0o644))

	require.Eventually(t, func() bool { return indexed(db, "visible.md") }, 5*time.Second, 50*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.False(t, indexed(db, ".obsidian/workspace.md"))
	assert.NotContains(t, rec.snapshot(), "created:.obsidian/workspace.md")
}

func TestHidden(t *testing.T) {
	assert.True(t, hidden(".obsidian"))
	assert.True(t, hidden(".obsidian/app.md"))
	assert.True(t, hidden("Go/.web2vault-tmp-123"))
	assert.False(t, hidden("Go/Channels.md"))
	assert.False(t, hidden("."))
}
