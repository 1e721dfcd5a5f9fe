package formatter

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/parser"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "amelia-earhart", Slug("Amelia Earhart"))
	assert.Equal(t, "untitled", Slug("   "))
	assert.Equal(t, "untitled", Slug("!!!"))
	assert.LessOrEqual(t, len([]rune(Slug(strings.Repeat("word ", 50)))), maxSlugRunes)
}

func TestTags_FixedTagsFirstAndDeduplicated(t *testing.T) {
	tags := Tags("Amelia Earhart", models.NoteQA, "qa", "web2vault", "aviation")
	assert.Equal(t, []string{"web2vault", "qa", "amelia-earhart", "aviation"}, tags)
}

func TestFormat_FrontmatterRoundTripsThroughParser(t *testing.T) {
	types := []models.NoteType{
		models.NoteSummary, models.NoteDeepDive, models.NoteQA, models.NotePractice, models.NoteRaw,
	}
	for _, nt := range types {
		t.Run(string(nt), func(t *testing.T) {
			note := models.GeneratedNote{
				Type:  nt,
				Title: "Amelia Earhart - " + nt.Label(),
				Body:  "## Early Life\n\nBorn in [[Kansas]].\n\n",
			}
			err := Format(&note, Source{
				URL:      "https://en.wikipedia.org/wiki/Amelia_Earhart",
				Title:    "Amelia Earhart",
				Language: "en",
				Date:     time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)

			res, err := parser.Parse([]byte(note.Content))
			require.NoError(t, err)
			require.NotNil(t, res.Frontmatter)

			assert.Equal(t, note.Title, res.Frontmatter["title"])
			assert.Equal(t, string(nt), res.Frontmatter["type"])
			assert.Equal(t, "https://en.wikipedia.org/wiki/Amelia_Earhart", res.Frontmatter["source"])
			assert.Contains(t, fmt.Sprint(res.Frontmatter["date"]), "2026-03-09")
			assert.Equal(t, "en", res.Frontmatter["language"])
			assert.Contains(t, res.Tags, "web2vault")
			assert.Contains(t, res.Tags, string(nt))
			assert.Equal(t, note.Title, res.Title)
			assert.Equal(t, []string{"Kansas"}, res.Links)
			assert.True(t, strings.HasSuffix(note.Content, "Born in [[Kansas]].\n"))
		})
	}
}

func TestFormat_OmitsUnknownLanguage(t *testing.T) {
	note := models.GeneratedNote{Type: models.NoteSummary, Title: "X - Summary", Body: "b"}
	require.NoError(t, Format(&note, Source{URL: "https://x.test", Title: "X"}))
	assert.NotContains(t, note.Content, "language:")
	assert.Contains(t, note.Content, "\n# X - Summary\n\nb\n")
}
