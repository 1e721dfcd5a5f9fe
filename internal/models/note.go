// Package models defines the domain types for web2vault.
package models

import "time"

// NoteType identifies the kind of generated note.
type NoteType string

const (
	NoteSummary  NoteType = "summary"
	NoteDeepDive NoteType = "deep_dive"
	NoteQA       NoteType = "qa"
	NotePractice NoteType = "practice"
	NoteRaw      NoteType = "raw"
)

// NoteTypes returns every generated note type in output order.
func NoteTypes() []NoteType {
	return []NoteType{NoteSummary, NoteDeepDive, NoteQA, NotePractice, NoteRaw}
}

// Label returns the human-readable name used in note titles and logs.
func (t NoteType) Label() string {
	switch t {
	case NoteSummary:
		return "Summary"
	case NoteDeepDive:
		return "Deep Dive"
	case NoteQA:
		return "Q&A"
	case NotePractice:
		return "Practice Questions"
	case NoteRaw:
		return "Raw Content"
	default:
		return string(t)
	}
}

// FileName returns the output file name (without extension) for the type.
func (t NoteType) FileName() string {
	switch t {
	case NoteRaw:
		return "Raw Note"
	default:
		return t.Label()
	}
}

// Page is the scraped content of one URL (or several crawled pages merged).
type Page struct {
	URL       string         `json:"url"`
	Title     string         `json:"title"`
	Markdown  string         `json:"markdown"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Language  string         `json:"language,omitempty"`
	ScrapedAt time.Time      `json:"scraped_at"`
}

// Chunk is an ordered, size-bounded slice of a page's markdown.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// VaultNote is an existing note discovered in the vault.
type VaultNote struct {
	Path   string   `json:"path"`
	Folder string   `json:"folder"`
	Title  string   `json:"title"`
	Topics []string `json:"topics,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// NoteMetadata is a lightweight representation returned by storage list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeneratedNote is a note produced by a generator.
type GeneratedNote struct {
	Type     NoteType `json:"type"`
	FileName string   `json:"file_name"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	// Content is the formatted file content (frontmatter + heading + body),
	// set by the formatter.
	Content string `json:"-"`
	// Path is the vault-relative output path, set by the writer.
	Path string `json:"path,omitempty"`
}

// Failure records a generator that did not produce its note.
type Failure struct {
	Type  NoteType `json:"type"`
	Error string   `json:"error"`
}

// Bundle collects all notes generated for one URL.
type Bundle struct {
	SourceURL   string          `json:"source_url"`
	SourceTitle string          `json:"source_title"`
	FolderName  string          `json:"folder_name"`
	Language    string          `json:"language,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Notes       []GeneratedNote `json:"notes"`
	Failures    []Failure       `json:"failures,omitempty"`
}

// Result is the outcome of running the pipeline over one URL.
type Result struct {
	URL       string    `json:"url"`
	OutputDir string    `json:"output_dir,omitempty"`
	Written   []string  `json:"written,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the URL produced output without any failure.
func (r Result) OK() bool {
	return r.Error == "" && len(r.Failures) == 0
}
