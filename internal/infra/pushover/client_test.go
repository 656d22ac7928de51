package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"voice-assistant/internal/infra/pushover"
)

func TestClient_Notify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages.json" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.PostForm.Get("message"); got != "All 3 free trials used" {
			t.Errorf("message: got %q", got)
		}
		if got := r.PostForm.Get("title"); got != "Voice Assistant" {
			t.Errorf("title: got %q", got)
		}
		if got := r.PostForm.Get("user"); got != "user-key" {
			t.Errorf("user: got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", "", server.URL)
	if err := client.Notify(context.Background(), "All 3 free trials used"); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func TestClient_NotifyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", "Test", server.URL)
	if err := client.Notify(context.Background(), "hello"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestClient_DisabledWithoutCredentials(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("", "", "", server.URL)
	if client.Enabled() {
		t.Error("client should be disabled")
	}
	if err := client.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls: got %d, want 0", calls.Load())
	}
}
