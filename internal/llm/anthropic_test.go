package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAnthropic_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropic("", "", "", 0); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNewAnthropic_Defaults(t *testing.T) {
	a, err := NewAnthropic("sk-ant", "", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Model() != defaultAnthropicModel {
		t.Errorf("model = %q", a.Model())
	}
	if a.baseURL != defaultAnthropicBaseURL {
		t.Errorf("baseURL = %q", a.baseURL)
	}
	if a.MaxInputTokens() != 180000 || a.MaxOutputTokens() != 16384 {
		t.Errorf("limits = %d/%d", a.MaxInputTokens(), a.MaxOutputTokens())
	}
}

func TestNewAnthropic_OutputLimitByFamily(t *testing.T) {
	cases := map[string]int{
		"claude-3-5-sonnet-20241022": 8192,
		"claude-3-5-haiku-latest":    8192,
		"claude-opus-4-20250514":     16384,
		"claude-unknown":             16384,
	}
	for model, want := range cases {
		a, _ := NewAnthropic("k", model, "", 0)
		if a.MaxOutputTokens() != want {
			t.Errorf("%s: max output = %d, want %d", model, a.MaxOutputTokens(), want)
		}
	}
}

func TestAnthropic_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"world"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	a, _ := NewAnthropic("sk-ant", "claude-3-5-haiku-latest", srv.URL, 0)
	text, err := a.Complete(context.Background(), Request{System: "sys", User: "hi", MaxTokens: 50000})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Hello world" {
		t.Errorf("text = %q", text)
	}
	if got.System != "sys" || len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("request = %+v", got)
	}
	if got.MaxTokens != 8192 {
		t.Errorf("max_tokens = %d, want clamped 8192", got.MaxTokens)
	}
}

func TestAnthropic_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	a, _ := NewAnthropic("k", "", srv.URL, 0)
	_, err := a.Complete(context.Background(), Request{User: "hi"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != 429 || apiErr.Type != "rate_limit_error" || !apiErr.Retryable() {
		t.Errorf("apiErr = %+v", apiErr)
	}
}
