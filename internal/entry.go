// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/web2vault/internal/api"
	"github.com/starford/web2vault/internal/chunker"
	"github.com/starford/web2vault/internal/generate"
	"github.com/starford/web2vault/internal/index"
	"github.com/starford/web2vault/internal/langdetect"
	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/mcpserver"
	"github.com/starford/web2vault/internal/noteservice"
	"github.com/starford/web2vault/internal/pipeline"
	"github.com/starford/web2vault/internal/scrape"
	"github.com/starford/web2vault/internal/sse"
	"github.com/starford/web2vault/internal/storage"
	"github.com/starford/web2vault/internal/vault"
	"github.com/starford/web2vault/internal/writer"
)

// defaultIndexFile is where serve keeps its index when sqlite.path is unset.
// Hidden directories are ignored by the vault scan and the watcher.
const defaultIndexFile = ".web2vault/index.db"

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.Default()
	}
	return app, nil
}

// vaultRuntime holds the components shared by every command.
type vaultRuntime struct {
	store   *storage.FS
	db      *index.DB
	scanner *vault.Scanner
}

func (rt *vaultRuntime) Close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

func (a *application) openVault() (*vaultRuntime, error) {
	cfg := a.config

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &vaultRuntime{store: store}
	var scanOpts []vault.ScannerOption
	if cfg.SQLite.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		scanOpts = append(scanOpts, vault.WithIndex(db))
	}
	rt.scanner = vault.NewScanner(store, a.logger, scanOpts...)
	return rt, nil
}

func (a *application) newPipeline(rt *vaultRuntime, sink pipeline.Sink) (*pipeline.Pipeline, error) {
	cfg := a.config
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	policy := cfg.Retry.Policy()

	provider, err := llm.New(cfg.LLM.Settings(), policy, a.logger)
	if err != nil {
		return nil, err
	}
	scraper, err := scrape.New(cfg.Scraper.Settings(), policy, a.logger)
	if err != nil {
		return nil, err
	}

	maxChars := cfg.Chunk.MaxChars
	if maxChars <= 0 {
		maxChars = chunker.MaxCharsFor(provider.MaxInputTokens())
	}

	a.logger.Info("Pipeline configured",
		slog.String("llm", provider.Name()),
		slog.String("model", provider.Model()),
		slog.String("scraper", cfg.Scraper.Provider),
		slog.Int("chunk_max_chars", maxChars),
		slog.Int("crawl_depth", cfg.Crawl.Depth),
		slog.Int("max_pages", cfg.Crawl.MaxPages))

	opts := []pipeline.Option{
		pipeline.WithCrawl(scrape.CrawlOptions{Depth: cfg.Crawl.Depth, MaxPages: cfg.Crawl.MaxPages}),
		pipeline.WithChunker(chunker.New(maxChars)),
		pipeline.WithDetector(langdetect.New()),
		pipeline.WithLinking(pipeline.Linking{MinSimilarity: cfg.Linking.MinSimilarity, MaxLinks: cfg.Linking.MaxLinks}),
		pipeline.WithLogger(a.logger),
	}
	if sink != nil {
		opts = append(opts, pipeline.WithSink(sink))
	}
	return pipeline.New(scraper, rt.scanner, generate.Defaults(provider, a.logger), writer.New(rt.store, a.logger), opts...), nil
}

// Generate processes the URLs of req once and returns the run report. The
// error is non-nil only when the run could not start (configuration).
func Generate(ctx context.Context, req pipeline.Request, opts ...Option) (pipeline.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return pipeline.Report{}, err
	}
	rt, err := app.openVault()
	if err != nil {
		return pipeline.Report{}, err
	}
	defer rt.Close()

	p, err := app.newPipeline(rt, nil)
	if err != nil {
		return pipeline.Report{}, err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return p.Run(ctx, req), nil
}

// Scan prints the vault index the way the language model sees it.
func Scan(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.openVault()
	if err != nil {
		return err
	}
	defer rt.Close()

	ix, err := rt.scanner.Scan(ctx, "")
	if err != nil {
		return err
	}
	app.logger.Info("Vault scanned", slog.String("vault_path", app.config.Vault.Path), slog.Int("notes", ix.Len()))
	if ix.Len() > 0 {
		_, err = fmt.Fprintln(app.out, ix.FormatForPrompt())
	}
	return err
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.openVault()
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := app.newPipeline(rt, nil)
	if err != nil {
		return err
	}
	svc := noteservice.NewService(rt.store, rt.scanner, p, rt.db, app.logger)

	app.logger.Info("MCP server starting", slog.String("vault_path", app.config.Vault.Path))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// Serve starts the HTTP API with the SSE event stream and the vault watcher.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger unless one was supplied.
	logger := app.logger
	if logger == slog.Default() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
		app.logger = logger
	}

	// The watcher needs the index.
	if !cfg.SQLite.Enabled() {
		cfg.SQLite.Path = filepath.Join(cfg.Vault.Path, filepath.FromSlash(defaultIndexFile))
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := app.openVault()
	if err != nil {
		return err
	}
	defer rt.Close()

	// Run initial sync.
	if err := index.Sync(rt.db, rt.store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker: pipeline progress and vault changes.
	broker := sse.NewBroker()
	defer broker.Close()

	p, err := app.newPipeline(rt, broker)
	if err != nil {
		return err
	}
	svc := noteservice.NewService(rt.store, rt.scanner, p, rt.db, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGINT and SIGTERM cancel ctx like any caller cancellation.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.db, rt.store, rt.store.Root(), logger, broker.PublishVaultChange); err != nil {
			logger.Warn("vault watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut the server down once the group context ends. The watcher stops on
	// the same context.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
