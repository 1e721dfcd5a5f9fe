package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/web2vault/internal"
	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/pipeline"
	pkgconfig "github.com/starford/web2vault/pkg/config"
)

var version = "dev"

// exitError carries a process exit code out of a command action.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// loadConfig layers defaults, the optional config file, the environment and
// the command-line flags, then validates the result once.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfig, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if cmd.IsSet("vault-path") {
		cfg.Vault.Path = cmd.String("vault-path")
	}
	if cmd.IsSet("provider") {
		cfg.LLM.Provider = cmd.String("provider")
	}
	if cmd.IsSet("model") {
		cfg.LLM.Model = cmd.String("model")
	}
	if cmd.IsSet("scraper") {
		cfg.Scraper.Provider = cmd.String("scraper")
	}
	if cmd.IsSet("crawl-depth") {
		cfg.Crawl.Depth = int(cmd.Int("crawl-depth"))
	}
	if cmd.IsSet("max-pages") {
		cfg.Crawl.MaxPages = int(cmd.Int("max-pages"))
	}
	if cmd.IsSet("db") {
		cfg.SQLite.Path = cmd.String("db")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func textLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func run(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one URL is required", apperr.ErrConfig)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rep, err := internal.Generate(ctx,
		pipeline.Request{URLs: urls, OutputName: cmd.String("output-name")},
		internal.WithConfig(cfg),
		internal.WithLogger(textLogger(cfg.App.LogLevel)),
		internal.WithVersion(version),
	)
	if err != nil {
		return err
	}
	printReport(os.Stdout, rep)
	if code := rep.ExitCode(); code != pipeline.ExitOK {
		return exitError{code: code}
	}
	return nil
}

func printReport(w io.Writer, rep pipeline.Report) {
	for _, res := range rep.Results {
		if res.Error != "" {
			fmt.Fprintf(w, "FAIL %s: %s\n", res.URL, res.Error)
			continue
		}
		fmt.Fprintf(w, "OK   %s -> %s (%d notes)\n", res.URL, res.OutputDir, len(res.Written))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "     %s failed: %s\n", f.Type.Label(), f.Error)
		}
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs go to stderr.
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogger(textLogger(cfg.App.LogLevel)),
		internal.WithVersion(version),
	)
}

func scan(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Scan(ctx,
		internal.WithConfig(cfg),
		internal.WithLogger(textLogger(cfg.App.LogLevel)),
		internal.WithOutput(os.Stdout),
	)
}

func main() {
	cmd := &cli.Command{
		Name:      "web2vault",
		Usage:     "Turn web pages into linked Obsidian study notes",
		ArgsUsage: "<url>...",
		Version:   version,
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to an optional YAML config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("WEB2VAULT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "vault-path",
				Usage: "Obsidian vault directory (env OBSIDIAN_VAULT_PATH)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "LLM provider: claude or openai (env LLM_PROVIDER)",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model name overriding the provider default",
			},
			&cli.StringFlag{
				Name:  "scraper",
				Usage: "Scraper: firecrawl or direct (env SCRAPER_PROVIDER)",
			},
			&cli.IntFlag{
				Name:  "crawl-depth",
				Usage: "Follow links this many levels deep (0 scrapes only the URL)",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Maximum pages to crawl per URL",
			},
			&cli.StringFlag{
				Name:  "output-name",
				Usage: "Output folder and note name (defaults to the page title)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite index cache path (empty reads the vault on every scan)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with a server-sent event stream",
				Action: serve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Usage:   "HTTP port",
						Sources: cli.EnvVars("WEB2VAULT_PORT"),
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: serveMCP,
			},
			{
				Name:   "scan",
				Usage:  "Print the vault index as the language model sees it",
				Action: scan,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrConfig) {
			os.Exit(pipeline.ExitFailed)
		}
		os.Exit(1)
	}
}
