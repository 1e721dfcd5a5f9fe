package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicMaxInput       = 180000
	anthropicDefaultOutput  = 16384
)

// Max output tokens by model family; the first matching prefix wins.
var anthropicMaxOutput = []struct {
	prefix string
	tokens int
}{
	{"claude-sonnet-4", 16384},
	{"claude-opus-4", 16384},
	{"claude-3-5-sonnet", 8192},
	{"claude-3-5-haiku", 8192},
}

// Ensure Anthropic implements Provider
var _ Provider = (*Anthropic)(nil)

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	apiKey    string
	model     string
	baseURL   string
	maxInput  int
	maxOutput int
	client    *http.Client
}

// NewAnthropic creates a Messages API client. maxInput overrides the default
// context window when positive.
func NewAnthropic(apiKey, model, baseURL string, maxInput int) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: anthropic API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if maxInput <= 0 {
		maxInput = anthropicMaxInput
	}
	maxOutput := anthropicDefaultOutput
	for _, m := range anthropicMaxOutput {
		if strings.HasPrefix(model, m.prefix) {
			maxOutput = m.tokens
			break
		}
	}
	return &Anthropic{
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxInput:  maxInput,
		maxOutput: maxOutput,
		client:    newHTTPClient(),
	}, nil
}

func (a *Anthropic) Name() string         { return ProviderClaude }
func (a *Anthropic) Model() string        { return a.model }
func (a *Anthropic) MaxInputTokens() int  { return a.maxInput }
func (a *Anthropic) MaxOutputTokens() int { return a.maxOutput }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one message and returns the concatenated text blocks.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: clampTokens(req.MaxTokens, a.maxOutput),
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("llm: parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: "anthropic", Status: resp.StatusCode, Message: truncate(string(respBody), 500)}
		if out.Error != nil {
			apiErr.Type = out.Error.Type
			apiErr.Message = out.Error.Message
		}
		return "", apiErr
	}

	var b strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String(), nil
}
