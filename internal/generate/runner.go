package generate

import (
	"context"
	"log/slog"

	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/models"
)

// Defaults returns the summary, deep dive, Q&A and practice generators in
// the order they run.
func Defaults(p llm.Provider, logger *slog.Logger) []*Generator {
	return []*Generator{
		NewSummary(p, logger),
		NewDeepDive(p, logger),
		NewQA(p, logger),
		NewPractice(p, logger),
	}
}

// Observer is told about each note as it is produced or fails.
type Observer func(t models.NoteType, note *models.GeneratedNote, err error)

// RunAll produces the raw note and then runs each generator in turn. A
// failing generator is recorded in the returned failures and does not stop
// the others.
func RunAll(ctx context.Context, gens []*Generator, in Input, logger *slog.Logger, observe Observer) ([]models.GeneratedNote, []models.Failure) {
	if logger == nil {
		logger = slog.Default()
	}
	if observe == nil {
		observe = func(models.NoteType, *models.GeneratedNote, error) {}
	}

	raw := RawNote(in)
	notes := []models.GeneratedNote{raw}
	observe(raw.Type, &raw, nil)

	var failures []models.Failure
	for i, g := range gens {
		logger.Info("generating note",
			slog.String("type", g.Type().Label()),
			slog.Int("step", i+1),
			slog.Int("of", len(gens)),
		)
		note, err := g.Generate(ctx, in)
		if err != nil {
			logger.Error("note generation failed",
				slog.String("type", g.Type().Label()),
				slog.String("error", err.Error()),
			)
			failures = append(failures, models.Failure{Type: g.Type(), Error: err.Error()})
			observe(g.Type(), nil, err)
			continue
		}
		logger.Debug("note generated",
			slog.String("type", g.Type().Label()),
			slog.Int("chars", len(note.Body)),
		)
		notes = append(notes, note)
		observe(note.Type, &note, nil)
	}
	return notes, failures
}
