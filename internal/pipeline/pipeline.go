// Package pipeline runs URLs through scraping, note generation and vault
// writing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/web2vault/internal/chunker"
	"github.com/starford/web2vault/internal/formatter"
	"github.com/starford/web2vault/internal/generate"
	"github.com/starford/web2vault/internal/langdetect"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/parser"
	"github.com/starford/web2vault/internal/scrape"
	"github.com/starford/web2vault/internal/vault"
	"github.com/starford/web2vault/internal/writer"
)

// Exit codes of a run.
const (
	ExitOK      = 0
	ExitPartial = 1
	ExitFailed  = 2
)

// LanguageDetector guesses the language of page text.
type LanguageDetector interface {
	Detect(text string) (langdetect.Language, bool)
}

// Linking tunes how new notes are linked to existing ones.
type Linking struct {
	MinSimilarity float64
	MaxLinks      int
}

// Pipeline turns URLs into notes. Runs are serialized: at most one Run
// executes at a time.
type Pipeline struct {
	scraper    scrape.Scraper
	scanner    *vault.Scanner
	generators []*generate.Generator
	writer     *writer.Writer

	crawl    scrape.CrawlOptions
	chunker  *chunker.Chunker
	detector LanguageDetector
	linking  Linking
	sink     Sink
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCrawl sets the crawl bounds applied to every URL.
func WithCrawl(o scrape.CrawlOptions) Option {
	return func(p *Pipeline) { p.crawl = o }
}

// WithChunker sets the chunker. Without one, content is never chunked.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) { p.chunker = c }
}

// WithDetector enables language detection.
func WithDetector(d LanguageDetector) Option {
	return func(p *Pipeline) { p.detector = d }
}

// WithLinking sets the related-note linking thresholds.
func WithLinking(l Linking) Option {
	return func(p *Pipeline) { p.linking = l }
}

// WithSink attaches a progress event sink.
func WithSink(s Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New assembles a pipeline.
func New(s scrape.Scraper, scanner *vault.Scanner, gens []*generate.Generator, w *writer.Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		scraper:    s,
		scanner:    scanner,
		generators: gens,
		writer:     w,
		crawl:      scrape.CrawlOptions{MaxPages: 1},
		linking:    Linking{MinSimilarity: vault.DefaultMinSimilarity, MaxLinks: 10},
		sink:       discard{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Request is one run over a list of URLs.
type Request struct {
	URLs []string `json:"urls"`
	// OutputName overrides the output folder name and the note display name.
	OutputName string `json:"output_name,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	RunID      string          `json:"run_id"`
	Results    []models.Result `json:"results"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// ExitCode is 0 when every URL was written without failures, 2 when no URL
// produced any output and 1 otherwise.
func (r Report) ExitCode() int {
	produced, clean := 0, true
	for _, res := range r.Results {
		if len(res.Written) > 0 {
			produced++
		}
		if !res.OK() {
			clean = false
		}
	}
	switch {
	case produced == 0:
		return ExitFailed
	case clean:
		return ExitOK
	default:
		return ExitPartial
	}
}

// Run processes the URLs one after another. A URL that fails does not stop
// the rest; its error is recorded in its result.
func (p *Pipeline) Run(ctx context.Context, req Request) Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	rep := Report{RunID: uuid.NewString(), StartedAt: p.now()}
	logger := p.logger.With(slog.String("run_id", rep.RunID))
	emit := func(e Event) {
		e.RunID = rep.RunID
		e.Time = p.now()
		p.sink.Emit(e)
	}

	logger.Info("run started", slog.Int("urls", len(req.URLs)))
	emit(Event{Type: EventRunStarted, Count: len(req.URLs)})

	for i, u := range req.URLs {
		u = strings.TrimSpace(u)
		if err := ctx.Err(); err != nil {
			rep.Results = append(rep.Results, models.Result{URL: u, Error: err.Error()})
			continue
		}
		logger.Info("processing url", slog.String("url", u), slog.Int("n", i+1), slog.Int("of", len(req.URLs)))

		res := p.processURL(ctx, logger.With(slog.String("url", u)), emit, u, req.OutputName)
		if res.Error != "" {
			emit(Event{Type: EventURLFailed, URL: u, Error: res.Error})
		} else {
			emit(Event{Type: EventURLWritten, URL: u, Path: res.OutputDir, Count: len(res.Written)})
		}
		rep.Results = append(rep.Results, res)
	}

	rep.FinishedAt = p.now()
	logger.Info("run finished",
		slog.Int("urls", len(rep.Results)),
		slog.Int("exit_code", rep.ExitCode()),
		slog.String("duration", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String()),
	)
	emit(Event{Type: EventRunFinished, Count: len(rep.Results)})
	return rep
}

// processURL runs one URL through the pipeline. The vault is scanned after
// the scrape since the output folder to exclude depends on the page title.
func (p *Pipeline) processURL(ctx context.Context, logger *slog.Logger, emit func(Event), rawURL, outputName string) models.Result {
	res := models.Result{URL: rawURL}

	page, err := scrape.Fetch(ctx, p.scraper, rawURL, p.crawl)
	if err != nil {
		logger.Error("scrape failed", slog.String("error", err.Error()))
		res.Error = err.Error()
		return res
	}
	logger.Info("page scraped", slog.String("title", page.Title), slog.Int("chars", len(page.Markdown)))
	emit(Event{Type: EventURLScraped, URL: rawURL, Count: len(page.Markdown)})

	folder := writer.FolderName(outputName, page.Title, rawURL)
	name := displayName(outputName, page.Title, folder)

	ix, err := p.scanner.Scan(ctx, folder)
	if err != nil {
		logger.Warn("vault scan failed, continuing without vault context", slog.String("error", err.Error()))
		ix = &vault.Index{}
	}
	logger.Debug("vault context", slog.Int("notes", ix.Len()))

	langName, langCode := "", page.Language
	if p.detector != nil {
		if l, ok := p.detector.Detect(page.Markdown); ok {
			langName, langCode = l.Name, l.Code
			logger.Debug("language detected", slog.String("language", l.Name))
		}
	}

	in := generate.Input{
		Name:         name,
		SourceTitle:  page.Title,
		URL:          rawURL,
		Markdown:     page.Markdown,
		Language:     langName,
		VaultContext: ix.FormatForPrompt(),
	}
	if p.chunker != nil && p.chunker.NeedsChunking(page.Markdown) {
		in.Chunks = p.chunker.Split(page.Markdown)
		logger.Info("content chunked", slog.Int("chunks", len(in.Chunks)), slog.Int("max_chars", p.chunker.MaxChars()))
	}

	notes, failures := generate.RunAll(ctx, p.generators, in, logger,
		func(t models.NoteType, _ *models.GeneratedNote, err error) {
			if err != nil {
				emit(Event{Type: EventNoteFailed, URL: rawURL, NoteType: t, Error: err.Error()})
				return
			}
			emit(Event{Type: EventNoteGenerated, URL: rawURL, NoteType: t})
		})
	res.Failures = failures

	related := ix.Related(pageTopics(page), p.linking.MinSimilarity, p.linking.MaxLinks)
	if len(related) > 0 {
		logger.Debug("linking related notes", slog.Int("related", len(related)))
		for i := range notes {
			if notes[i].Type != models.NoteRaw {
				notes[i].Body = vault.LinkRelated(notes[i].Body, related)
			}
		}
	}

	src := formatter.Source{URL: rawURL, Title: name, Language: langCode, Date: p.now()}
	if err := formatter.FormatAll(notes, src); err != nil {
		res.Error = err.Error()
		return res
	}

	written, err := p.writer.Write(folder, notes)
	res.Written = written
	res.OutputDir = p.writer.Dir(folder)
	for _, ne := range writer.NoteErrors(err) {
		res.Failures = append(res.Failures, models.Failure{Type: ne.Type, Error: ne.Error()})
	}
	if len(written) == 0 {
		res.Error = fmt.Sprintf("no notes written for %s", rawURL)
		return res
	}
	logger.Info("notes written",
		slog.String("dir", res.OutputDir),
		slog.Int("written", len(written)),
		slog.Int("failed", len(res.Failures)),
	)
	return res
}

func displayName(outputName, title, folder string) string {
	switch {
	case strings.TrimSpace(outputName) != "":
		return strings.TrimSpace(outputName)
	case strings.TrimSpace(title) != "":
		return strings.TrimSpace(title)
	default:
		return folder
	}
}

// pageTopics are the phrases a page is matched against vault notes with:
// its title and its level-2 headings.
func pageTopics(page *models.Page) []string {
	topics := []string{page.Title}
	if res, err := parser.Parse([]byte(page.Markdown)); err == nil {
		topics = append(topics, res.Topics...)
	}
	return topics
}
