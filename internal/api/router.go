package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/web2vault/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token, false))
		r.Use(middleware.NoCache)

		r.Get("/notes", h.ListNotes)
		r.Get("/notes/*", h.GetNote)
		r.Get("/search", h.Search)
		r.Get("/backlinks", h.Backlinks)
		r.Get("/related", h.Related)

		// A run blocks until every URL is processed.
		r.With(middleware.AllowContentType("application/json")).Post("/runs", h.CreateRun)
	})

	if sseHandler != nil {
		r.With(AuthMiddleware(authEnabled, token, true)).Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
