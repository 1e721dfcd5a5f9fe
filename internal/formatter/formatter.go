// Package formatter turns generated notes into vault files: YAML frontmatter,
// a title heading and the note body.
package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-slug"
	"gopkg.in/yaml.v3"

	"github.com/starford/web2vault/internal/models"
)

const (
	// AppTag is carried by every note the tool writes.
	AppTag = "web2vault"

	fallbackSlug = "untitled"
	maxSlugRunes = 80
	dateLayout   = "2006-01-02"
)

// Source describes the page a bundle of notes came from.
type Source struct {
	URL      string
	Title    string
	Language string
	Date     time.Time
}

type frontmatter struct {
	Title    string   `yaml:"title"`
	Type     string   `yaml:"type"`
	Source   string   `yaml:"source"`
	Tags     []string `yaml:"tags"`
	Date     string   `yaml:"date"`
	Language string   `yaml:"language,omitempty"`
}

// Slug normalizes s into a lowercase, hyphenated identifier of at most 80
// runes, or "untitled" when nothing usable remains.
func Slug(s string) string {
	return SlugOr(s, fallbackSlug)
}

// SlugOr is Slug with a caller-chosen fallback.
func SlugOr(s, fallback string) string {
	out, err := slug.Normalize(strings.TrimSpace(s))
	if err != nil {
		out = ""
	}
	out = strings.Trim(out, "-")
	if utf8.RuneCountInString(out) > maxSlugRunes {
		out = strings.TrimRight(string([]rune(out)[:maxSlugRunes]), "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// Tags returns the note's tag set: the app tag, the note type and the
// subject derived from the page title, followed by any extra tags, with
// duplicates removed.
func Tags(title string, t models.NoteType, extra ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	add(AppTag)
	add(string(t))
	add(Slug(title))
	for _, e := range extra {
		add(e)
	}
	return out
}

// Format sets note.Tags and note.Content from the note and its source.
func Format(note *models.GeneratedNote, src Source) error {
	date := src.Date
	if date.IsZero() {
		date = time.Now()
	}
	note.Tags = Tags(src.Title, note.Type, note.Tags...)

	fm, err := marshalFrontmatter(frontmatter{
		Title:    note.Title,
		Type:     string(note.Type),
		Source:   src.URL,
		Tags:     note.Tags,
		Date:     date.Format(dateLayout),
		Language: src.Language,
	})
	if err != nil {
		return fmt.Errorf("formatter: %s: %w", note.Type, err)
	}

	var b strings.Builder
	b.WriteString(fm)
	b.WriteString("\n# ")
	b.WriteString(note.Title)
	b.WriteString("\n\n")
	if body := strings.TrimSpace(note.Body); body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	note.Content = b.String()
	return nil
}

// FormatAll formats every note of a bundle.
func FormatAll(notes []models.GeneratedNote, src Source) error {
	for i := range notes {
		if err := Format(&notes[i], src); err != nil {
			return err
		}
	}
	return nil
}

func marshalFrontmatter(fm frontmatter) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	return "---\n" + buf.String() + "---\n", nil
}
