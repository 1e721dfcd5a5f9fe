package vault

import (
	"strings"
	"unicode"

	"github.com/starford/web2vault/internal/formatter"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/parser"
)

// DefaultMinSimilarity is the keyword Jaccard similarity at which a vault
// note counts as related to a topic.
const DefaultMinSimilarity = 0.5

const relatedHeading = "## " + parser.RelatedHeading

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"for": {}, "with": {}, "by": {}, "is": {}, "at": {}, "or": {}, "from": {},
}

// genericTags are written on every note of a kind and say nothing about its
// subject.
var genericTags = func() map[string]struct{} {
	m := map[string]struct{}{formatter.AppTag: {}}
	for _, t := range models.NoteTypes() {
		m[string(t)] = struct{}{}
	}
	return m
}()

// Related returns the notes whose title, topics or tags match any of
// topics. The note-type suffix of generated titles and the tags every
// generated note carries are not matched. Two phrases match when their normalized forms are equal or their
// keyword sets have a Jaccard similarity of at least minSimilarity. At most
// limit notes are returned (limit <= 0 means no limit), in index order.
func (ix *Index) Related(topics []string, minSimilarity float64, limit int) []models.VaultNote {
	if ix.Len() == 0 || len(topics) == 0 {
		return nil
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	wanted := make([]map[string]struct{}, 0, len(topics))
	norms := make([]string, 0, len(topics))
	for _, t := range topics {
		if n := normalize(t); n != "" {
			norms = append(norms, n)
			wanted = append(wanted, keywords(t))
		}
	}

	var out []models.VaultNote
	for _, n := range ix.Notes {
		if matchesAny(n, norms, wanted, minSimilarity) {
			out = append(out, n)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func matchesAny(n models.VaultNote, norms []string, wanted []map[string]struct{}, min float64) bool {
	for _, p := range subjectPhrases(n) {
		np := normalize(p)
		if np == "" {
			continue
		}
		kp := keywords(p)
		for i := range norms {
			if np == norms[i] || jaccard(kp, wanted[i]) >= min {
				return true
			}
		}
	}
	return false
}

func subjectPhrases(n models.VaultNote) []string {
	phrases := append([]string{subjectTitle(n.Title)}, n.Topics...)
	for _, tag := range n.Tags {
		if _, generic := genericTags[strings.ToLower(strings.TrimPrefix(tag, "#"))]; !generic {
			phrases = append(phrases, tag)
		}
	}
	return phrases
}

// subjectTitle strips a " - Summary" style suffix from a generated title.
func subjectTitle(title string) string {
	for _, t := range models.NoteTypes() {
		if s, ok := strings.CutSuffix(title, " - "+t.Label()); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return title
}

// LinkRelated appends a "## Related Notes" section linking to each note
// that the body does not already reference. The body is returned unchanged
// when there is nothing new to link.
func LinkRelated(body string, notes []models.VaultNote) string {
	linked := make(map[string]struct{})
	for _, l := range parser.ExtractLinks(body) {
		linked[strings.ToLower(l)] = struct{}{}
	}

	var lines []string
	for _, n := range notes {
		key := strings.ToLower(n.Title)
		if _, ok := linked[key]; ok || n.Title == "" {
			continue
		}
		linked[key] = struct{}{}
		lines = append(lines, "- [["+n.Title+"]]")
	}
	if len(lines) == 0 {
		return body
	}
	return strings.TrimRight(body, "\n") + "\n\n" + relatedHeading + "\n\n" + strings.Join(lines, "\n")
}

func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), notWordRune), " ")
}

func keywords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), notWordRune) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
