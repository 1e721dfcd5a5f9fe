// Package apperr defines the error taxonomy shared across the pipeline.
package apperr

import "errors"

var (
	// ErrConfig marks missing or invalid configuration. Fatal before any work starts.
	ErrConfig = errors.New("configuration error")
	// ErrScrape marks a scrape or crawl failure for one URL.
	ErrScrape = errors.New("scrape failed")
	// ErrLLM marks a language-model call that failed after retries.
	ErrLLM = errors.New("llm call failed")
	// ErrWrite marks a filesystem failure while writing a note.
	ErrWrite = errors.New("write failed")
	// ErrEmptyContent is returned when a page yields no markdown.
	ErrEmptyContent = errors.New("empty content")
	// ErrNotFound is returned for missing vault notes.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a malformed request from the API or MCP surface.
	ErrInvalidInput = errors.New("invalid input")
)
