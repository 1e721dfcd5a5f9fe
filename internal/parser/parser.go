// Package parser extracts frontmatter, headings, wikilinks, and tags from Markdown content.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// RelatedHeading is the level-2 heading of the link section appended to
// generated notes. It is navigation, so it never counts as a topic.
const RelatedHeading = "Related Notes"

// Heading is a top-level Markdown heading located in a source document.
type Heading struct {
	Level int
	Text  string
	// Offset is the byte offset of the start of the heading's first line.
	Offset int
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Links       []string
	Tags        []string
	Title       string
	// Topics are the level-2 headings of the body.
	Topics []string
}

// Parse extracts frontmatter, body, headings, wikilinks, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	headings := Headings([]byte(body))

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       ExtractLinks(body),
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, headings),
		Topics:      topicsOf(headings),
	}, nil
}

// splitFrontmatter separates YAML frontmatter from the Markdown body. If no
// frontmatter is found, or it is not valid YAML, the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---")) {
		return nil, string(data)
	}

	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(trimmed), &fm)
	if err != nil {
		return nil, string(data)
	}
	return fm, strings.TrimLeft(string(body), "\n\r")
}

// Headings returns the top-level headings of src in document order. Headings
// nested in lists or block quotes, and lines inside fenced code, are ignored.
func Headings(src []byte) []Heading {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		first := h.Lines().At(0)
		var buf bytes.Buffer
		for i := 0; i < h.Lines().Len(); i++ {
			seg := h.Lines().At(i)
			buf.Write(seg.Value(src))
		}
		out = append(out, Heading{
			Level:  h.Level,
			Text:   strings.TrimSpace(buf.String()),
			Offset: lineStart(src, first.Start),
		})
	}
	return out
}

func lineStart(src []byte, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// ExtractLinks returns deduplicated wikilink targets, normalising aliases.
func ExtractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		// [[Target|Alias]] and [[Target#Heading]] both point at Target.
		if i := strings.IndexAny(target, "|#"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags collects tags from the frontmatter "tags" field and inline #tags in body.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "#")
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []any:
			for _, item := range v {
				add(fmt.Sprint(item))
			}
		case []string:
			for _, item := range v {
				add(item)
			}
		case string:
			for _, item := range strings.Split(v, ",") {
				add(item)
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, headings []Heading) string {
	if fm != nil {
		if t, ok := fm["title"]; ok && t != nil {
			if s := strings.TrimSpace(fmt.Sprint(t)); s != "" {
				return s
			}
		}
	}
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

func topicsOf(headings []Heading) []string {
	var out []string
	for _, h := range headings {
		if h.Level == 2 && h.Text != "" && h.Text != RelatedHeading {
			out = append(out, h.Text)
		}
	}
	return out
}
