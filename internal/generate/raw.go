package generate

import "github.com/starford/web2vault/internal/models"

// RawNote keeps the scraped markdown as a note. It makes no model calls.
func RawNote(in Input) models.GeneratedNote {
	return models.GeneratedNote{
		Type:     models.NoteRaw,
		FileName: models.NoteRaw.FileName(),
		Title:    NoteTitle(in.Name, models.NoteRaw),
		Body:     in.Markdown,
		Tags:     DefaultTags(models.NoteRaw),
	}
}
