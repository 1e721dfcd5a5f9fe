package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

const (
	defaultOpenAIModel   = "gpt-4o"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAIMaxInput       = 120000
	openAILegacyMaxInput = 14000
	openAIDefaultOutput  = 16384
)

// Models that still take max_tokens; newer ones require max_completion_tokens.
var openAILegacyPrefixes = []string{"gpt-3.5", "gpt-4o", "gpt-4-turbo", "gpt-4-"}

// Ensure OpenAI implements Provider
var _ Provider = (*OpenAI)(nil)

// OpenAI calls the OpenAI Chat Completions API.
type OpenAI struct {
	apiKey   string
	model    string
	baseURL  string
	maxInput int
	client   *http.Client

	// completionTokens selects max_completion_tokens over max_tokens. It is
	// flipped when the API rejects the parameter in use.
	completionTokens atomic.Bool
}

// NewOpenAI creates a Chat Completions client. maxInput overrides the default
// context window when positive.
func NewOpenAI(apiKey, model, baseURL string, maxInput int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OpenAI API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if maxInput <= 0 {
		maxInput = openAIMaxInput
		if strings.Contains(model, "gpt-3.5") {
			maxInput = openAILegacyMaxInput
		}
	}
	o := &OpenAI{
		apiKey:   apiKey,
		model:    model,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxInput: maxInput,
		client:   newHTTPClient(),
	}
	o.completionTokens.Store(!isLegacyOpenAIModel(model))
	return o, nil
}

func isLegacyOpenAIModel(model string) bool {
	for _, p := range openAILegacyPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func (o *OpenAI) Name() string         { return ProviderOpenAI }
func (o *OpenAI) Model() string        { return o.model }
func (o *OpenAI) MaxInputTokens() int  { return o.maxInput }
func (o *OpenAI) MaxOutputTokens() int { return openAIDefaultOutput }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends a system + user chat and returns the first choice. If the
// token-limit parameter is rejected as unsupported, the other one is tried
// once and remembered for later calls.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	tokens := clampTokens(req.MaxTokens, openAIDefaultOutput)
	messages := []chatMessage{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.User},
	}

	useCompletion := o.completionTokens.Load()
	text, err := o.do(ctx, messages, tokens, useCompletion)
	var apiErr *APIError
	if errors.As(err, &apiErr) && isUnsupportedParameter(apiErr) {
		o.completionTokens.CompareAndSwap(useCompletion, !useCompletion)
		return o.do(ctx, messages, tokens, !useCompletion)
	}
	return text, err
}

func isUnsupportedParameter(e *APIError) bool {
	if e.Status != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(e.Type + " " + e.Message)
	return strings.Contains(msg, "unsupported_parameter") || strings.Contains(msg, "unsupported parameter")
}

func (o *OpenAI) do(ctx context.Context, messages []chatMessage, tokens int, useCompletion bool) (string, error) {
	reqBody := chatRequest{Model: o.model, Messages: messages}
	if useCompletion {
		reqBody.MaxCompletionTokens = tokens
	} else {
		reqBody.MaxTokens = tokens
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: openai request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("llm: parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: "openai", Status: resp.StatusCode, Message: truncate(string(respBody), 500)}
		if out.Error != nil {
			apiErr.Type = out.Error.Code
			if apiErr.Type == "" {
				apiErr.Type = out.Error.Type
			}
			apiErr.Message = out.Error.Message
		}
		return "", apiErr
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm: openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
