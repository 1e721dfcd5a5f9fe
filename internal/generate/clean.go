package generate

import (
	"regexp"
	"strings"

	"github.com/starford/web2vault/internal/models"
)

var (
	leadingFrontmatterRe = regexp.MustCompile(`(?s)^---[ \t]*\n.*?\n---[ \t]*(?:\n|$)`)
	leadingH1Re          = regexp.MustCompile(`^#[ \t]+(.+)`)
	blankRunRe           = regexp.MustCompile(`\n{4,}`)
)

// Clean tidies model output: it strips frontmatter the model added anyway,
// drops a leading # heading that repeats the note title, collapses runs of
// blank lines and trims trailing spaces.
func Clean(text, title string, t models.NoteType) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = strings.TrimSpace(leadingFrontmatterRe.ReplaceAllString(text, ""))

	if m := leadingH1Re.FindStringSubmatch(text); m != nil && duplicatesTitle(m[1], title, t) {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = strings.TrimSpace(text[i+1:])
		} else {
			text = ""
		}
	}

	text = blankRunRe.ReplaceAllString(text, "\n\n\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func duplicatesTitle(heading, title string, t models.NoteType) bool {
	h := strings.ToLower(strings.TrimSpace(heading))
	n := strings.ToLower(strings.TrimSpace(title))
	if h == "" {
		return false
	}
	if n != "" && (h == n || strings.HasPrefix(n, h) || strings.HasPrefix(h, n)) {
		return true
	}
	return strings.Contains(h, strings.ToLower(t.Label())) || strings.Contains(h, string(t))
}
