// Package testutil provides shared test helpers for vaults, databases and
// stand-in language models.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/starford/web2vault/internal/index"
	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "web2vault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNote writes content to rel inside the vault rooted at dir.
func WriteNote(t *testing.T, store storage.Provider, rel, content string) {
	t.Helper()
	if err := store.Write(rel, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

// MockLLM is a testify mock of llm.Provider. Only Complete is mocked; the
// limits come from the struct fields.
type MockLLM struct {
	mock.Mock
	Input  int
	Output int
}

var _ llm.Provider = (*MockLLM)(nil)

// NewMockLLM returns a MockLLM with generous limits.
func NewMockLLM() *MockLLM {
	return &MockLLM{Input: 180000, Output: 16384}
}

func (m *MockLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) Name() string         { return "mock" }
func (m *MockLLM) Model() string        { return "mock-model" }
func (m *MockLLM) MaxInputTokens() int  { return m.Input }
func (m *MockLLM) MaxOutputTokens() int { return m.Output }

// FakeLLM answers every request with Respond and records the requests.
type FakeLLM struct {
	Respond func(req llm.Request) (string, error)
	Input   int
	Output  int

	mu       sync.Mutex
	requests []llm.Request
}

var _ llm.Provider = (*FakeLLM)(nil)

// NewFakeLLM returns a FakeLLM that replies with a short Markdown body.
func NewFakeLLM() *FakeLLM {
	return &FakeLLM{
		Respond: func(llm.Request) (string, error) { return "## Notes\n\nGenerated text.", nil },
		Input:   180000,
		Output:  16384,
	}
}

func (f *FakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.Respond(req)
}

// Requests returns a copy of the requests seen so far.
func (f *FakeLLM) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

func (f *FakeLLM) Name() string         { return "fake" }
func (f *FakeLLM) Model() string        { return "fake-model" }
func (f *FakeLLM) MaxInputTokens() int  { return f.Input }
func (f *FakeLLM) MaxOutputTokens() int { return f.Output }
