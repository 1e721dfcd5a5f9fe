package noteservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/pipeline"
	"github.com/starford/web2vault/internal/storage"
	"github.com/starford/web2vault/internal/testutil"
	"github.com/starford/web2vault/internal/vault"
)

type stubRunner struct {
	got []pipeline.Request
}

func (r *stubRunner) Run(_ context.Context, req pipeline.Request) pipeline.Report {
	r.got = append(r.got, req)
	res := make([]models.Result, len(req.URLs))
	for i, u := range req.URLs {
		res[i] = models.Result{URL: u, Written: []string{"x/Summary.md"}}
	}
	return pipeline.Report{RunID: "run-1", Results: res}
}

func seed(t *testing.T, store storage.Provider) {
	t.Helper()
	testutil.WriteNote(t, store, "Rust/Ownership.md", "---\ntitle: Ownership\ntags: [rust]\n---\n\n## Borrowing\n\nSee [[Lifetimes]].\n")
	testutil.WriteNote(t, store, "Rust/Lifetimes.md", "# Lifetimes\n\n## Elision\n\nRules for elision.\n")
	testutil.WriteNote(t, store, "Go/Channels.md", "# Channels\n\n## Select\n\nUnlike [[Lifetimes]], channels move values.\n")
}

func newService(t *testing.T, withDB bool) (*Service, *stubRunner) {
	t.Helper()
	_, store := testutil.TestVault(t)
	seed(t, store)
	runner := &stubRunner{}
	if withDB {
		db := testutil.TestDB(t)
		return NewService(store, vault.NewScanner(store, nil, vault.WithIndex(db)), runner, db, nil), runner
	}
	return NewService(store, vault.NewScanner(store, nil), runner, nil, nil), runner
}

func TestGenerate_ValidatesURLs(t *testing.T) {
	svc, runner := newService(t, false)

	cases := []pipeline.Request{
		{},
		{URLs: []string{""}},
		{URLs: []string{"not a url"}},
		{URLs: []string{"https://example.com", "relative/path"}},
	}
	for _, req := range cases {
		_, err := svc.Generate(context.Background(), req)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "request %v", req.URLs)
	}
	assert.Empty(t, runner.got)
}

func TestGenerate_RunsPipeline(t *testing.T) {
	svc, runner := newService(t, false)

	rep, err := svc.Generate(context.Background(), pipeline.Request{
		URLs:       []string{"  https://example.com/a  "},
		OutputName: "Notes",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", rep.RunID)
	require.Len(t, runner.got, 1)
	assert.Equal(t, []string{"https://example.com/a"}, runner.got[0].URLs)
	assert.Equal(t, "Notes", runner.got[0].OutputName)
	assert.Equal(t, pipeline.ExitOK, rep.ExitCode())
}

func TestListNotes_FolderFilter(t *testing.T) {
	for _, withDB := range []bool{false, true} {
		svc, _ := newService(t, withDB)

		all, err := svc.ListNotes(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		rust, err := svc.ListNotes(context.Background(), "Rust/")
		require.NoError(t, err)
		require.Len(t, rust, 2)
		for _, n := range rust {
			assert.Equal(t, "Rust", n.Folder)
		}
	}
}

func TestSearch(t *testing.T) {
	for _, withDB := range []bool{false, true} {
		svc, _ := newService(t, withDB)

		res, err := svc.Search(context.Background(), "lifetimes", 0)
		require.NoError(t, err)
		require.NotEmpty(t, res, "withDB=%v", withDB)
		assert.Equal(t, "Rust/Lifetimes.md", res[0].Path, "title match ranks first (withDB=%v)", withDB)

		none, err := svc.Search(context.Background(), "kubernetes", 5)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		_, err = svc.Search(context.Background(), "  ", 5)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}

func TestGetNote(t *testing.T) {
	for _, withDB := range []bool{false, true} {
		svc, _ := newService(t, withDB)
		if withDB {
			// Populate the link table.
			_, err := svc.ListNotes(context.Background(), "")
			require.NoError(t, err)
		}

		n, err := svc.GetNote(context.Background(), "Rust/Lifetimes.md")
		require.NoError(t, err)
		assert.Equal(t, "Lifetimes", n.Title)
		assert.Equal(t, []string{"Elision"}, n.Topics)
		assert.Equal(t, []string{"Go/Channels.md", "Rust/Ownership.md"}, n.Backlinks)
		assert.NotEmpty(t, n.Checksum)

		_, err = svc.GetNote(context.Background(), "Rust/Missing.md")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
}

func TestBacklinks_EmptyTitle(t *testing.T) {
	svc, _ := newService(t, false)
	_, err := svc.Backlinks(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRelated(t *testing.T) {
	svc, _ := newService(t, false)

	notes, err := svc.Related(context.Background(), []string{"Borrowing"}, 5)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Ownership", notes[0].Title)

	_, err = svc.Related(context.Background(), nil, 5)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
