package internal

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/retry"
	"github.com/starford/web2vault/internal/scrape"
	"github.com/starford/web2vault/internal/vault"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Scraper ScraperConfig     `yaml:"scraper"`
	LLM     LLMConfig         `yaml:"llm"`
	Crawl   CrawlConfig       `yaml:"crawl"`
	Chunk   ChunkConfig       `yaml:"chunk"`
	Retry   RetryConfig       `yaml:"retry"`
	Linking LinkingConfig     `yaml:"linking"`
}

// Validate validates the configuration. Errors wrap apperr.ErrConfig.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"app", &c.App},
		{"vault", &c.Vault},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
		{"scraper", &c.Scraper},
		{"llm", &c.LLM},
		{"crawl", &c.Crawl},
		{"chunk", &c.Chunk},
		{"retry", &c.Retry},
		{"linking", &c.Linking},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", apperr.ErrConfig, s.name, err)
		}
	}
	return nil
}

// RequireCredentials checks that the API keys needed by the configured
// scraper and LLM providers are present. Commands that never call them
// (scan) skip this check.
func (c *Config) RequireCredentials() error {
	if c.Scraper.Provider == scrape.ProviderFirecrawl && c.Scraper.Firecrawl.APIKey == "" {
		return fmt.Errorf("%w: FIRECRAWL_API_KEY is required for the firecrawl scraper", apperr.ErrConfig)
	}
	switch c.LLM.Provider {
	case llm.ProviderClaude:
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is required for provider %q", apperr.ErrConfig, c.LLM.Provider)
		}
	case llm.ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", apperr.ErrConfig, c.LLM.Provider)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Obsidian vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the vault index cache location. An empty path disables
// the cache and every scan reads the vault files.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether the index cache is configured.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ScraperConfig selects how pages are fetched.
type ScraperConfig struct {
	Provider     string          `yaml:"provider"`
	Firecrawl    FirecrawlConfig `yaml:"firecrawl"`
	UserAgent    string          `yaml:"user_agent"`
	PollInterval time.Duration   `yaml:"poll_interval"`
	Timeout      time.Duration   `yaml:"timeout"`
}

// FirecrawlConfig holds Firecrawl API access.
type FirecrawlConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Validate validates the scraper configuration.
func (c *ScraperConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(scrape.ProviderFirecrawl, scrape.ProviderDirect)),
		validation.Field(&c.Firecrawl),
		validation.Field(&c.PollInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Validate validates the Firecrawl configuration.
func (c FirecrawlConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, is.URL),
	)
}

// Settings converts the section for scrape.New.
func (c *ScraperConfig) Settings() scrape.Settings {
	return scrape.Settings{
		Provider:        c.Provider,
		FirecrawlAPIKey: c.Firecrawl.APIKey,
		FirecrawlURL:    c.Firecrawl.BaseURL,
		PollInterval:    c.PollInterval,
		Timeout:         c.Timeout,
		UserAgent:       c.UserAgent,
	}
}

// LLMConfig selects the language model.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model.
	Model string `yaml:"model"`
	// MaxInputTokens overrides the model's context window.
	MaxInputTokens int               `yaml:"max_input_tokens"`
	Anthropic      APIEndpointConfig `yaml:"anthropic"`
	OpenAI         APIEndpointConfig `yaml:"openai"`
}

// APIEndpointConfig is an API key with an optional base URL.
type APIEndpointConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Validate validates the endpoint configuration.
func (c APIEndpointConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, is.URL),
	)
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(llm.ProviderClaude, llm.ProviderOpenAI)),
		validation.Field(&c.MaxInputTokens, validation.Min(0)),
		validation.Field(&c.Anthropic),
		validation.Field(&c.OpenAI),
	)
}

// Settings converts the section for llm.New.
func (c *LLMConfig) Settings() llm.Settings {
	return llm.Settings{
		Provider:        c.Provider,
		Model:           c.Model,
		AnthropicAPIKey: c.Anthropic.APIKey,
		AnthropicURL:    c.Anthropic.BaseURL,
		OpenAIAPIKey:    c.OpenAI.APIKey,
		OpenAIURL:       c.OpenAI.BaseURL,
		MaxInputTokens:  c.MaxInputTokens,
	}
}

// CrawlConfig bounds link following. Depth 0 scrapes only the given URL.
type CrawlConfig struct {
	Depth    int `yaml:"depth"`
	MaxPages int `yaml:"max_pages"`
}

// Validate validates the crawl configuration.
func (c *CrawlConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Depth, validation.Min(0)),
		validation.Field(&c.MaxPages, validation.Required, validation.Min(1)),
	)
}

// ChunkConfig overrides the chunk size. Zero derives it from the model's
// context window.
type ChunkConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// Validate validates the chunk configuration.
func (c *ChunkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxChars, validation.Min(0)),
	)
}

// RetryConfig configures retries of scraper and LLM calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.BaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay, validation.Min(c.BaseDelay)),
	)
}

// Policy converts the section into a retry policy.
func (c *RetryConfig) Policy() retry.Policy {
	return retry.Policy{MaxAttempts: c.MaxAttempts, BaseDelay: c.BaseDelay, MaxDelay: c.MaxDelay}
}

// LinkingConfig tunes related-note detection.
type LinkingConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	MaxLinks      int     `yaml:"max_links"`
}

// Validate validates the linking configuration.
func (c *LinkingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinSimilarity, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxLinks, validation.Min(0)),
	)
}

// envVars maps environment variables onto config fields.
var envVars = []struct {
	name  string
	apply func(c *Config, v string) error
}{
	{"OBSIDIAN_VAULT_PATH", func(c *Config, v string) error { c.Vault.Path = v; return nil }},
	{"WEB2VAULT_DB_PATH", func(c *Config, v string) error { c.SQLite.Path = v; return nil }},
	{"SCRAPER_PROVIDER", func(c *Config, v string) error { c.Scraper.Provider = v; return nil }},
	{"FIRECRAWL_API_KEY", func(c *Config, v string) error { c.Scraper.Firecrawl.APIKey = v; return nil }},
	{"FIRECRAWL_BASE_URL", func(c *Config, v string) error { c.Scraper.Firecrawl.BaseURL = v; return nil }},
	{"LLM_PROVIDER", func(c *Config, v string) error { c.LLM.Provider = v; return nil }},
	{"LLM_MODEL", func(c *Config, v string) error { c.LLM.Model = v; return nil }},
	{"ANTHROPIC_API_KEY", func(c *Config, v string) error { c.LLM.Anthropic.APIKey = v; return nil }},
	{"ANTHROPIC_BASE_URL", func(c *Config, v string) error { c.LLM.Anthropic.BaseURL = v; return nil }},
	{"OPENAI_API_KEY", func(c *Config, v string) error { c.LLM.OpenAI.APIKey = v; return nil }},
	{"OPENAI_BASE_URL", func(c *Config, v string) error { c.LLM.OpenAI.BaseURL = v; return nil }},
	{"WEB2VAULT_AUTH_TOKEN", func(c *Config, v string) error { c.Auth.Mode, c.Auth.Token = AuthModeToken, v; return nil }},
	{"WEB2VAULT_PORT", func(c *Config, v string) (err error) { c.App.HTTP.Port, err = strconv.Atoi(v); return err }},
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv; empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, e := range envVars {
		v, ok := lookup(e.name)
		if !ok || v == "" {
			continue
		}
		if err := e.apply(c, v); err != nil {
			return fmt.Errorf("%w: %s: %v", apperr.ErrConfig, e.name, err)
		}
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	p := retry.DefaultPolicy()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault_output",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Scraper: ScraperConfig{
			Provider: scrape.ProviderFirecrawl,
		},
		LLM: LLMConfig{
			Provider: llm.ProviderClaude,
		},
		Crawl: CrawlConfig{
			MaxPages: 1,
		},
		Retry: RetryConfig{
			MaxAttempts: p.MaxAttempts,
			BaseDelay:   p.BaseDelay,
			MaxDelay:    p.MaxDelay,
		},
		Linking: LinkingConfig{
			MinSimilarity: vault.DefaultMinSimilarity,
			MaxLinks:      10,
		},
	}
}
