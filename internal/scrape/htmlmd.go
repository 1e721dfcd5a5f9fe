package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRe     = regexp.MustCompile(`[ \t\r\n]+`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

const blockSelector = "p,div,section,article,main,header,h1,h2,h3,h4,h5,h6,ul,ol,pre,table,blockquote,figure,hr"

// HTMLToMarkdown converts an HTML fragment (typically readability output) to
// Markdown. Only the structure that matters for study notes is kept:
// headings, paragraphs, lists, code, quotes, tables, links and images.
func HTMLToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("scrape: parse html: %w", err)
	}
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var b strings.Builder
	writeBlocks(&b, root)
	out := blankRunsRe.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out) + "\n", nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "header": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "pre": true, "table": true, "blockquote": true, "figure": true, "hr": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true, "footer": true,
	"form": true, "iframe": true, "svg": true, "#comment": true,
}

// writeBlocks renders the children of s as Markdown blocks. Runs of inline
// children are joined into one paragraph.
func writeBlocks(b *strings.Builder, s *goquery.Selection) {
	var run strings.Builder
	flush := func() {
		block(b, strings.TrimSpace(run.String()))
		run.Reset()
	}

	s.Contents().Each(func(_ int, n *goquery.Selection) {
		tag := goquery.NodeName(n)
		if skipTags[tag] {
			return
		}
		if !isBlock(n, tag) {
			run.WriteString(inlineNode(n))
			return
		}
		flush()

		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			block(b, strings.Repeat("#", int(tag[1]-'0'))+" "+inline(n))
		case "p":
			block(b, inline(n))
		case "ul", "ol":
			var lb strings.Builder
			writeList(&lb, n, tag == "ol", 0)
			block(b, strings.TrimRight(lb.String(), "\n"))
		case "pre":
			block(b, codeBlock(n))
		case "blockquote":
			var inner strings.Builder
			writeBlocks(&inner, n)
			lines := strings.Split(strings.TrimSpace(inner.String()), "\n")
			for i, l := range lines {
				lines[i] = strings.TrimRight("> "+l, " ")
			}
			block(b, strings.Join(lines, "\n"))
		case "table":
			block(b, table(n))
		case "hr":
			block(b, "---")
		default:
			writeBlocks(b, n)
		}
	})
	flush()
}

func isBlock(n *goquery.Selection, tag string) bool {
	if tag == "#text" {
		return false
	}
	return blockTags[tag] || n.Find(blockSelector).Length() > 0
}

func block(b *strings.Builder, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString(text)
	b.WriteString("\n\n")
}

func inline(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, n *goquery.Selection) {
		b.WriteString(inlineNode(n))
	})
	return strings.TrimSpace(b.String())
}

func inlineNode(n *goquery.Selection) string {
	switch goquery.NodeName(n) {
	case "#text":
		return spaceRe.ReplaceAllString(n.Text(), " ")
	case "a":
		text := inline(n)
		href, _ := n.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || text == "" {
			return text
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	case "strong", "b":
		return wrap(inline(n), "**")
	case "em", "i":
		return wrap(inline(n), "*")
	case "code":
		return wrap(n.Text(), "`")
	case "br":
		return "\n"
	case "img":
		return image(n)
	case "script", "style", "#comment":
		return ""
	default:
		return inline(n)
	}
}

func wrap(text, mark string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return mark + text + mark
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func image(n *goquery.Selection) string {
	src, _ := n.Attr("src")
	if src == "" {
		return ""
	}
	alt, _ := n.Attr("alt")
	return fmt.Sprintf("![%s](%s)", collapse(alt), src)
}

func writeList(b *strings.Builder, list *goquery.Selection, ordered bool, depth int) {
	indent := strings.Repeat("  ", depth)
	i := 0
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		i++
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", i)
		}
		nested := li.ChildrenFiltered("ul,ol")
		item := li.Clone()
		item.ChildrenFiltered("ul,ol").Remove()
		b.WriteString(indent + marker + inline(item) + "\n")
		nested.Each(func(_ int, sub *goquery.Selection) {
			writeList(b, sub, goquery.NodeName(sub) == "ol", depth+1)
		})
	})
}

func codeBlock(pre *goquery.Selection) string {
	code := pre.Find("code").First()
	src := pre
	if code.Length() > 0 {
		src = code
	}
	lang := ""
	if class, ok := src.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			if strings.HasPrefix(c, "language-") {
				lang = strings.TrimPrefix(c, "language-")
				break
			}
		}
	}
	return "```" + lang + "\n" + strings.TrimRight(src.Text(), "\n") + "\n```"
}

func table(t *goquery.Selection) string {
	var rows [][]string
	t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.ReplaceAll(inline(cell), "|", `\|`))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	var b strings.Builder
	line := func(cells []string) {
		for len(cells) < width {
			cells = append(cells, "")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	line(rows[0])
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	line(sep)
	for _, r := range rows[1:] {
		line(r)
	}
	return strings.TrimRight(b.String(), "\n")
}
