package vault

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/testutil"
)

func seedVault(t *testing.T) *Scanner {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.WriteNote(t, store, "Wright Brothers/Summary.md",
		"---\ntitle: Wright Brothers - Summary\ntags: [web2vault, summary]\n---\n# Wright Brothers - Summary\n\n## Early Aviation\n\ntext\n\n## Kitty Hawk\n")
	testutil.WriteNote(t, store, "Amelia Earhart/Summary.md",
		"---\ntitle: Amelia Earhart - Summary\n---\n## Transatlantic Flight\n")
	testutil.WriteNote(t, store, "loose note.md", "no title here\n\n## Gardening\n")
	testutil.WriteNote(t, store, ".obsidian/app.md", "# Config\n")
	return NewScanner(store, nil)
}

func TestScan_TitlesAndTopics(t *testing.T) {
	s := seedVault(t)

	ix, err := s.Scan(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 3, ix.Len())

	topics := ix.Topics()
	assert.Equal(t, []string{"Early Aviation", "Kitty Hawk"}, topics["Wright Brothers - Summary"])
	assert.Equal(t, []string{"Gardening"}, topics["loose note"])
	assert.NotContains(t, topics, "Config")
}

func TestScan_ExcludesFolder(t *testing.T) {
	s := seedVault(t)

	ix, err := s.Scan(context.Background(), "Amelia Earhart")
	require.NoError(t, err)
	for _, n := range ix.Notes {
		assert.NotEqual(t, "Amelia Earhart", n.Folder)
	}
	assert.Equal(t, 2, ix.Len())
}

func TestScan_ThroughIndexMatchesFileScan(t *testing.T) {
	plain := seedVault(t)
	cached := NewScanner(plain.store, nil, WithIndex(testutil.TestDB(t)))

	want, err := plain.Scan(context.Background(), "")
	require.NoError(t, err)
	got, err := cached.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, want.Topics(), got.Topics())

	testutil.WriteNote(t, plain.store, "New/Note.md", "# Fresh\n")
	got, err = cached.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Len())
}

func TestScan_CancelledContext(t *testing.T) {
	s := seedVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Scan(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatForPrompt(t *testing.T) {
	ix := &Index{Notes: []models.VaultNote{
		{Title: "A", Topics: []string{"x", "y"}},
		{Title: "B"},
	}}
	assert.Equal(t, "- [[A]] — Topics: x, y\n- [[B]]", ix.FormatForPrompt())
	assert.Equal(t, "", (&Index{}).FormatForPrompt())
}

func TestRelated(t *testing.T) {
	ix := &Index{Notes: []models.VaultNote{
		{Title: "Wright Brothers - Summary", Topics: []string{"Early Aviation", "Kitty Hawk"}},
		{Title: "Gardening Basics", Topics: []string{"Soil"}},
		{Title: "Flight", Tags: []string{"aviation-history"}},
	}}

	related := ix.Related([]string{"Early aviation"}, DefaultMinSimilarity, 0)
	require.Len(t, related, 1)
	assert.Equal(t, "Wright Brothers - Summary", related[0].Title)

	// "history of aviation" vs "aviation-history": {history, aviation} on both sides.
	related = ix.Related([]string{"History of Aviation"}, DefaultMinSimilarity, 0)
	require.Len(t, related, 1)
	assert.Equal(t, "Flight", related[0].Title)

	assert.Empty(t, ix.Related([]string{"Quantum Computing"}, DefaultMinSimilarity, 0))
	assert.Len(t, ix.Related([]string{"aviation", "soil"}, 0.3, 1), 1)
}

func TestRelated_IgnoresGeneratedNoteMarkers(t *testing.T) {
	ix := &Index{Notes: []models.VaultNote{
		{Title: "Rust Ownership - Summary", Topics: []string{"Borrowing"}, Tags: []string{"web2vault", "summary", "rust-ownership"}},
		{Title: "Honey Bees - Practice Questions", Topics: []string{"Hive Roles"}, Tags: []string{"web2vault", "practice", "honey-bees"}},
		{Title: "Bees - Summary", Tags: []string{"web2vault", "summary", "bees"}},
	}}

	assert.Empty(t, ix.Related([]string{"Roman Aqueducts", "Summary", "Practice", "web2vault"}, DefaultMinSimilarity, 10))

	// The subject part of the title and the other tags still match.
	related := ix.Related([]string{"Rust Ownership"}, DefaultMinSimilarity, 10)
	require.Len(t, related, 1)
	assert.Equal(t, "Rust Ownership - Summary", related[0].Title)

	related = ix.Related([]string{"honey bees"}, 1, 10)
	require.Len(t, related, 1)
	assert.Equal(t, "Honey Bees - Practice Questions", related[0].Title)
}

func TestLinkRelated(t *testing.T) {
	notes := []models.VaultNote{
		{Title: "Wright Brothers - Summary"},
		{Title: "Kitty Hawk"},
	}
	body := "Flight began with [[Kitty Hawk]].\n"

	got := LinkRelated(body, notes)
	assert.True(t, strings.HasSuffix(got, "## Related Notes\n\n- [[Wright Brothers - Summary]]"))
	assert.Equal(t, 1, strings.Count(got, "[[Kitty Hawk]]"))

	assert.Equal(t, body, LinkRelated(body, notes[1:]))
	assert.Equal(t, body, LinkRelated(body, nil))
}
