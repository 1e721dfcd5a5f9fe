package api

import (
	"github.com/starford/web2vault/internal/index"
	"github.com/starford/web2vault/internal/models"
	"github.com/starford/web2vault/internal/noteservice"
	"github.com/starford/web2vault/internal/pipeline"
)

// RunRequest is the request body for starting a pipeline run.
type RunRequest struct {
	URLs       []string `json:"urls" example:"https://go.dev/doc/effective_go" validate:"required"`
	OutputName string   `json:"output_name,omitempty" example:"Effective Go"`
}

// RunResponse is the outcome of a run. ExitCode follows the CLI convention:
// 0 success, 1 partial, 2 nothing written.
type RunResponse struct {
	pipeline.Report
	ExitCode int `json:"exit_code" example:"0"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.VaultNote `json:"notes" validate:"required"`
	Total int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the notes linking to a title.
type BacklinksResponse struct {
	Title     string   `json:"title" example:"Goroutines" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// RelatedResponse lists vault notes related to a set of topics.
type RelatedResponse struct {
	Notes []models.VaultNote `json:"notes" validate:"required"`
}
