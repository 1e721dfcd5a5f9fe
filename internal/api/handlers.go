package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/web2vault/internal/noteservice"
	"github.com/starford/web2vault/internal/pipeline"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. Rust%2FOwnership.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List vault notes, optionally under one folder
//	@Tags			notes
//	@Produce		json
//	@Param			folder	query		string	false	"Folder relative to the vault root"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	notes, err := h.svc.ListNotes(r.Context(), folder)
	if err != nil {
		writeError(w, "list notes failed", err, slog.String("folder", folder))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note failed", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Search handles GET /api/search.
//
//	@Summary		Search note titles, topics, tags and bodies
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search failed", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		List notes that wikilink to a title
//	@Tags			notes
//	@Produce		json
//	@Param			title	query		string	true	"Note title"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	bl, err := h.svc.Backlinks(r.Context(), title)
	if err != nil {
		writeError(w, "backlinks failed", err, slog.String("title", title))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Title: title, Backlinks: bl})
}

// Related handles GET /api/related.
//
//	@Summary		Find vault notes related to one or more topics
//	@Tags			notes
//	@Produce		json
//	@Param			topic	query		[]string	true	"Topic (repeatable)"
//	@Param			limit	query		int			false	"Max results"
//	@Success		200		{object}	RelatedResponse
//	@Security		BearerAuth
//	@Router			/related [get]
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notes, err := h.svc.Related(r.Context(), topics, limit)
	if err != nil {
		writeError(w, "related failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RelatedResponse{Notes: notes})
}

// CreateRun handles POST /api/runs. The run is synchronous; progress is
// published on /api/events while it executes.
//
//	@Summary		Scrape URLs and write study notes into the vault
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RunRequest	true	"URLs to process"
//	@Success		200		{object}	RunResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "decode run request", err)
		return
	}
	rep, err := h.svc.Generate(r.Context(), pipeline.Request{URLs: req.URLs, OutputName: req.OutputName})
	if err != nil {
		writeError(w, "run failed", err, slog.Int("urls", len(req.URLs)))
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Report: rep, ExitCode: rep.ExitCode()})
}
