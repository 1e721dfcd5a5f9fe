// Package chunker splits long Markdown into size-bounded chunks aligned to
// heading boundaries.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/parser"
)

const (
	// reservedTokens is kept free in the context window for the prompt
	// template, vault context and the model's own instructions.
	reservedTokens = 10000
	charsPerToken  = 4
	minChunkChars  = 1000
)

var (
	paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)*`)
	wordRe           = regexp.MustCompile(`\s*\S+\s*`)
	atxHeadingRe     = regexp.MustCompile(`^ {0,3}#{1,6}(?:[ \t].*)?$`)
	setextHeadingRe  = regexp.MustCompile(`^[^\n]+\n {0,3}(?:=+|-+)[ \t]*$`)
	setextUnderRe    = regexp.MustCompile(`^ {0,3}(?:=+|-+)[ \t]*\n?$`)
)

// MaxCharsFor derives a chunk budget from a model's input context window.
func MaxCharsFor(maxInputTokens int) int {
	n := (maxInputTokens - reservedTokens) * charsPerToken
	if n < minChunkChars {
		return minChunkChars
	}
	return n
}

// Chunker splits Markdown into chunks of at most MaxChars runes.
type Chunker struct {
	maxChars int
}

// New returns a Chunker with the given budget. Budgets below one rune are
// raised to one.
func New(maxChars int) *Chunker {
	if maxChars < 1 {
		maxChars = 1
	}
	return &Chunker{maxChars: maxChars}
}

// MaxChars returns the chunk budget in runes.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// NeedsChunking reports whether text exceeds a single chunk.
func (c *Chunker) NeedsChunking(text string) bool {
	return size(text) > c.maxChars
}

// Split returns the ordered chunks of markdown. Whitespace-only input yields
// no chunks.
func (c *Chunker) Split(markdown string) []models.Chunk {
	pieces := c.fit(markdown, 0)

	var out []models.Chunk
	var cur strings.Builder
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, models.Chunk{Index: len(out), Text: t})
		}
		cur.Reset()
	}
	for _, p := range pieces {
		if cur.Len() > 0 && size(cur.String()+p) > c.maxChars {
			flush()
		}
		cur.WriteString(p)
	}
	flush()
	return out
}

// strategies are tried in order on any piece that is still over budget.
// Each returns contiguous substrings whose concatenation is its input.
var strategies = []func(string) []string{
	func(s string) []string { return splitAtHeadings(s, 1, 2) },
	func(s string) []string { return splitAtHeadings(s, 3, 6) },
	splitParagraphs,
	splitLines,
	splitWords,
}

// fit breaks text into raw pieces that each fit the budget once trimmed.
func (c *Chunker) fit(text string, level int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size(text) <= c.maxChars {
		return []string{text}
	}
	if level >= len(strategies) {
		return splitRunes(text, c.maxChars)
	}
	parts := strategies[level](text)
	if len(parts) <= 1 {
		return c.fit(text, level+1)
	}
	var out []string
	for _, p := range parts {
		out = append(out, c.fit(p, level+1)...)
	}
	return out
}

func splitAtHeadings(s string, minLevel, maxLevel int) []string {
	var cuts []int
	for _, h := range parser.Headings([]byte(s)) {
		if h.Level >= minLevel && h.Level <= maxLevel && h.Offset > 0 {
			cuts = append(cuts, h.Offset)
		}
	}
	return glueHeadings(cutAt(s, cuts))
}

func splitParagraphs(s string) []string {
	var cuts []int
	for _, m := range paragraphBreakRe.FindAllStringIndex(s, -1) {
		cuts = append(cuts, m[1])
	}
	return glueHeadings(cutAt(s, cuts))
}

// splitLines splits after each line break. A setext underline stays on its
// title line.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if n := len(out); n > 0 && setextUnderRe.MatchString(l) && strings.TrimSpace(out[n-1]) != "" {
			out[n-1] += l
			continue
		}
		out = append(out, l)
	}
	return glueHeadings(out)
}

// splitWords splits at whitespace. Heading lines leading s stay attached to
// the first word so the heading cannot end up at the tail of a chunk.
func splitWords(s string) []string {
	head := headingPrefix(s)
	words := wordRe.FindAllString(s[len(head):], -1)
	if head == "" {
		return words
	}
	if len(words) == 0 {
		return []string{s}
	}
	words[0] = head + words[0]
	return words
}

// headingPrefix returns the ATX or setext heading lines at the start of s,
// along with the blank lines around them. It is empty when s does not start
// with a heading.
func headingPrefix(s string) string {
	end, headingEnd := 0, 0
	for end < len(s) {
		rest := s[end:]
		line, _, found := strings.Cut(rest, "\n")
		n := len(line)
		if found {
			n++
		}
		switch {
		case strings.TrimSpace(line) == "":
			end += n
			continue
		case atxHeadingRe.MatchString(line):
			end += n
			headingEnd = end
			continue
		case found:
			underline, _, more := strings.Cut(rest[n:], "\n")
			if setextHeadingRe.MatchString(line + "\n" + underline) {
				end += n + len(underline)
				if more {
					end++
				}
				headingEnd = end
				continue
			}
		}
		break
	}
	if headingEnd == 0 {
		return ""
	}
	return s[:end]
}

// splitRunes is the last resort for a single word longer than the budget.
func splitRunes(s string, max int) []string {
	var out []string
	for len(s) > 0 {
		n, i := 0, 0
		for i < len(s) && n < max {
			_, w := utf8.DecodeRuneInString(s[i:])
			i += w
			n++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}

func cutAt(s string, cuts []int) []string {
	var out []string
	prev := 0
	for _, c := range cuts {
		if c <= prev || c >= len(s) {
			continue
		}
		out = append(out, s[prev:c])
		prev = c
	}
	return append(out, s[prev:])
}

// glueHeadings joins any heading-only part to the part that follows it, so a
// heading never ends a piece while content follows.
func glueHeadings(parts []string) []string {
	out := make([]string, 0, len(parts))
	var pending string
	for _, p := range parts {
		p = pending + p
		pending = ""
		if isHeadingOnly(p) {
			pending = p
			continue
		}
		out = append(out, p)
	}
	if pending != "" {
		if len(out) == 0 {
			return append(out, pending)
		}
		out[len(out)-1] += pending
	}
	return out
}

// isHeadingOnly reports whether every non-blank line of s is a heading.
func isHeadingOnly(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if setextHeadingRe.MatchString(t) {
		return true
	}
	for _, line := range strings.Split(t, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !atxHeadingRe.MatchString(line) {
			return false
		}
	}
	return true
}

func size(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
