package relay_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/relay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCompleter struct {
	answers map[string]string
	err     error
	asked   []string
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(_ context.Context, question string) (string, error) {
	s.asked = append(s.asked, question)
	if s.err != nil {
		return "", s.err
	}
	return s.answers[question], nil
}

func TestServer_Ask(t *testing.T) {
	completer := &stubCompleter{answers: map[string]string{"Hello": "Hi there"}}
	handler := relay.NewServer(completer, relay.ServerOptions{}, discardLogger()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"question":"Hello"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Hi there", body["answer"])
	assert.Equal(t, []string{"Hello"}, completer.asked)
}

func TestServer_UpstreamFailureReturnsFallback(t *testing.T) {
	completer := &stubCompleter{err: errors.New("openai API error 500")}
	handler := relay.NewServer(completer, relay.ServerOptions{}, discardLogger()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"question":"Hello"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.MessageFallback, body["answer"])
}

func TestServer_BadBody(t *testing.T) {
	handler := relay.NewServer(&stubCompleter{}, relay.ServerOptions{}, discardLogger()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"question":`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	completer := &stubCompleter{answers: map[string]string{}}
	handler := relay.NewServer(completer, relay.ServerOptions{RateLimit: 1}, discardLogger()).Handler()

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"question":"Hello"}`))
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServer_Health(t *testing.T) {
	handler := relay.NewServer(&stubCompleter{}, relay.ServerOptions{}, discardLogger()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClient_RoundTripThroughServer(t *testing.T) {
	completer := &stubCompleter{answers: map[string]string{"Hello": "Hi there"}}
	server := httptest.NewServer(relay.NewServer(completer, relay.ServerOptions{}, discardLogger()).Handler())
	defer server.Close()

	client := relay.NewClient(server.URL+"/", time.Second, discardLogger())
	answer := client.Ask(context.Background(), "Hello")

	assert.Equal(t, domain.Answer{Text: "Hi there"}, answer)
}

func TestClient_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"answer":`))
			},
		},
		{
			name: "empty answer",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"answer":""}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			answer := relay.NewClient(server.URL, time.Second, discardLogger()).Ask(context.Background(), "Hello")

			assert.True(t, answer.Fallback)
			assert.Equal(t, domain.MessageFallback, answer.Text)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	answer := relay.NewClient(url, time.Second, discardLogger()).Ask(context.Background(), "Hello")

	assert.True(t, answer.Fallback)
	assert.Equal(t, domain.MessageFallback, answer.Text)
}
