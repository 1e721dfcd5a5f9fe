package mcpserver

// NoteFormatContract describes the notes web2vault writes, so that MCP
// clients can read and cross-link them correctly.
const NoteFormatContract = `# web2vault Note Format

Every run writes one folder per source URL into the vault. The folder is named
after the output name, the page title or the URL, in that order of preference.

## Files

| File                      | type       | Content                                     |
|---------------------------|------------|---------------------------------------------|
| Raw Note.md               | raw        | The scraped page as Markdown, unchanged     |
| Summary.md                | summary    | Key ideas and a short overview              |
| Deep Dive.md              | deep_dive  | Section-by-section expansion of the source  |
| Q&A.md                    | qa         | Questions and answers grouped by topic      |
| Practice Questions.md     | practice   | Numbered exercises with worked answers      |

A generator that fails is skipped; the other files are still written.
Running the same URL again overwrites the files in its folder.

## Structure

` + "```" + `markdown
---
title: Goroutines - Summary       # "<name> - <Label>"
type: summary                     # raw | summary | deep_dive | qa | practice
source: https://go.dev/tour       # the scraped URL
tags:
  - web2vault
  - summary
  - goroutines                    # kebab-case slug of the name
date: 2026-03-09                  # run date, ISO-8601
language: en                      # ISO 639-1, omitted when unknown
---

# Goroutines - Summary

Body text in Markdown with [[wikilinks]] to existing vault notes.
` + "```" + `

## Rules

1. Wikilinks target note **titles** (not paths): ` + "`" + `[[Channels]]` + "`" + `.
2. Non-raw notes may end with a ` + "`" + `## Related Notes` + "`" + ` section listing vault
   notes whose topics match this page and that the body does not link yet.
3. Topics of a note are its level-2 headings.
4. Files are UTF-8 with a trailing newline.
`
