package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voice-assistant/internal/infra"
	"voice-assistant/internal/infra/gemini"
)

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "Hi there\n"}}}},
			},
		})
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", server.URL, infra.CompletionConfig{Model: "gemini-test", Retry: infra.SingleAttempt()})

	answer, err := client.Complete(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if answer != "Hi there" {
		t.Errorf("answer: got %q", answer)
	}
}

func TestClient_ErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "quota exceeded", "code": 429},
		})
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", server.URL, infra.CompletionConfig{Retry: infra.SingleAttempt()})

	_, err := client.Complete(context.Background(), "Hello")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error, got %v", err)
	}
}
