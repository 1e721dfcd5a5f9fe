// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/web2vault/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)
	// Root returns the absolute vault root.
	Root() string
}
