package pipeline

import (
	"time"

	"github.com/starford/web2vault/internal/models"
)

// Event types published while a run progresses.
const (
	EventRunStarted    = "run.started"
	EventURLScraped    = "url.scraped"
	EventNoteGenerated = "note.generated"
	EventNoteFailed    = "note.failed"
	EventURLWritten    = "url.written"
	EventURLFailed     = "url.failed"
	EventRunFinished   = "run.finished"
)

// Event is one progress notification.
type Event struct {
	Type     string          `json:"type"`
	RunID    string          `json:"run_id"`
	URL      string          `json:"url,omitempty"`
	NoteType models.NoteType `json:"note_type,omitempty"`
	Path     string          `json:"path,omitempty"`
	Count    int             `json:"count,omitempty"`
	Error    string          `json:"error,omitempty"`
	Time     time.Time       `json:"time"`
}

// Sink receives progress events. Emit must not block for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

type discard struct{}

func (discard) Emit(Event) {}
