package writer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/testutil"
)

func TestFolderName(t *testing.T) {
	cases := []struct {
		name, output, title, url, want string
	}{
		{"output name wins", "My Notes", "Amelia Earhart", "https://x.test/a", "My Notes"},
		{"output name sanitized", "a/b:c", "T", "https://x.test", "abc"},
		{"title slug", "", "Amelia Earhart", "https://x.test/a", "amelia-earhart"},
		{"url segment", "", "", "https://example.com/docs/Getting-Started.html", "getting-started"},
		{"domain", "", "", "https://www.example.com/", "example.com"},
		{"garbage", "", "", "::", "untitled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FolderName(tc.output, tc.title, tc.url))
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "Q&A", SanitizeFileName("Q&A"))
	assert.Equal(t, "What is it", SanitizeFileName(`What is it?`))
	assert.Equal(t, "abc", SanitizeFileName(`<a>b|c*`))
	assert.Equal(t, "name", SanitizeFileName(" .name. "))
	assert.Equal(t, "untitled", SanitizeFileName("???"))
}

func TestWrite_FilesAndUniqueNames(t *testing.T) {
	dir, store := testutil.TestVault(t)
	w := New(store, nil)

	notes := []models.GeneratedNote{
		{Type: models.NoteRaw, FileName: "Raw Note", Content: "raw"},
		{Type: models.NoteSummary, FileName: "Summary", Content: "one"},
		{Type: models.NoteSummary, FileName: "Summary", Content: "two"},
		{Type: models.NoteQA, FileName: "Q&A", Content: "qa"},
	}
	written, err := w.Write("My Notes", notes)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"My Notes/Raw Note.md",
		"My Notes/Summary.md",
		"My Notes/Summary 2.md",
		"My Notes/Q&A.md",
	}, written)
	assert.Equal(t, "My Notes/Summary 2.md", notes[2].Path)

	data, err := os.ReadFile(filepath.Join(dir, "My Notes", "Summary 2.md"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "My Notes")), w.Dir("My Notes"))
}

func TestWrite_FailuresAreReportedPerNote(t *testing.T) {
	dir, store := testutil.TestVault(t)
	// A directory where a note file should go makes that one write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Out", "Summary.md"), 0o755))

	notes := []models.GeneratedNote{
		{Type: models.NoteSummary, FileName: "Summary", Content: "s"},
		{Type: models.NoteQA, FileName: "Q&A", Content: "q"},
	}
	written, err := New(store, nil).Write("Out", notes)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrWrite))
	assert.Contains(t, err.Error(), "Summary.md")
	assert.Equal(t, []string{"Out/Q&A.md"}, written)
	assert.Empty(t, notes[0].Path)

	failed := NoteErrors(err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.NoteSummary, failed[0].Type)
	assert.Equal(t, "Summary.md", failed[0].File)
}
