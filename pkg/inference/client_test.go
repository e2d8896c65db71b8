package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":    "test-id",
		"model": "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func TestClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}

		var body chatPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-4o-mini" {
			t.Errorf("Expected model gpt-4o-mini, got %s", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "Hello" {
			t.Errorf("Unexpected messages: %+v", body.Messages)
		}

		writeCompletion(w, "Hello! How can I help?")
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithModel("gpt-4o-mini"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewSystemMessage("Be brief."),
			NewUserMessage("Hello"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "Hello! How can I help?" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Expected finish_reason 'stop', got %s", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestClientEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeCompletion(w, "third time lucky")
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithRetry(2, time.Millisecond))
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "third time lucky" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("Expected /models, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Invalid API key",
				"code":    "invalid_api_key",
			},
		})
	}))
	defer server.Close()

	client, _ := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("bad-key"),
	)
	defer client.Close()

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("test")},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.StatusCode != 401 {
		t.Errorf("Expected 401, got %d", apiErr.StatusCode)
	}
	if !apiErr.IsUnauthorized() || apiErr.IsRetryable() {
		t.Error("Expected non-retryable unauthorized error")
	}
}

func TestClientNoAPIKey(t *testing.T) {
	// Local providers like Ollama need no key.
	client, err := NewClient(WithBaseURL("http://localhost:11434/v1"))
	if err != nil {
		t.Fatalf("Should allow creation without API key: %v", err)
	}
	client.Close()
}

func TestClientRequiresModel(t *testing.T) {
	if _, err := NewClient(WithModel("")); !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel, got %v", err)
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestSplitMessages(t *testing.T) {
	system, history, last, err := splitMessages([]Message{
		NewSystemMessage("Be brief."),
		NewUserMessage("hi"),
		NewAssistantMessage("hello"),
		NewUserMessage("what's up"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "Be brief." || last != "what's up" {
		t.Errorf("unexpected split: %q %q", system, last)
	}
	if len(history) != 2 || history[1].Role != "model" {
		t.Errorf("unexpected history: %+v", history)
	}

	if _, _, _, err := splitMessages([]Message{NewSystemMessage("only")}); err == nil {
		t.Error("expected error without a user turn")
	}
}
