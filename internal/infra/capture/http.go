package capture

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/httpx"
)

// HTTPSource is the capture adapter for browser clients: the page runs the
// platform recognizer and posts its terminal event here. Posts are only
// accepted while a session is listening.
type HTTPSource struct {
	logger      *slog.Logger
	rateLimiter *httpx.RateLimiter
	authToken   string

	mu      sync.Mutex
	current chan domain.CaptureEvent
}

func NewHTTPSource(authToken string, rateLimit int, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		logger:      logger,
		rateLimiter: httpx.NewRateLimiter(rateLimit, time.Minute),
		authToken:   authToken,
	}
}

func (h *HTTPSource) Name() string {
	return "http"
}

func (h *HTTPSource) Start(_ context.Context) (<-chan domain.CaptureEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.CaptureEvent, 1)
	h.current = ch
	return ch, nil
}

func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
	return nil
}

func (h *HTTPSource) Listening() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// deliver hands ev to the armed session and disarms. It reports false when
// nothing is listening.
func (h *HTTPSource) deliver(ev domain.CaptureEvent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return false
	}
	h.current <- ev
	h.current = nil
	return true
}

// RegisterRoutes mounts the capture endpoints on r.
func (h *HTTPSource) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimiter.Middleware)
		r.Use(h.authenticate)
		r.Post("/result", h.handleResult)
		r.Post("/error", h.handleError)
	})
	r.Get("/status", h.handleStatus)
}

func (h *HTTPSource) Handler() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *HTTPSource) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != h.authToken {
			h.logger.Warn("unauthorized capture request", "remote_addr", r.RemoteAddr)
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTPSource) handleResult(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()

	text := strings.TrimSpace(string(data))
	if !h.deliver(domain.ResultEvent(text)) {
		httpx.Error(w, http.StatusConflict, "not listening")
		return
	}

	h.logger.Info("received transcript via HTTP", "text", text)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func (h *HTTPSource) handleError(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 256))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()

	code := strings.TrimSpace(string(data))
	if code == "" {
		code = "unknown"
	}
	if !h.deliver(domain.ErrorEvent(code)) {
		httpx.Error(w, http.StatusConflict, "not listening")
		return
	}

	h.logger.Info("received recognition error via HTTP", "code", code)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func (h *HTTPSource) handleStatus(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]bool{"listening": h.Listening()})
}
