package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/httpx"
)

const maxQuestionBytes = 16 * 1024

// Completer is an upstream language model. One call per question.
type Completer interface {
	Complete(ctx context.Context, question string) (string, error)
	Name() string
}

type ServerOptions struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

type Server struct {
	completer Completer
	fallback  string
	limiter   *httpx.RateLimiter
	origins   []string
	logger    *slog.Logger
}

func NewServer(completer Completer, opts ServerOptions, logger *slog.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &Server{
		completer: completer,
		fallback:  domain.MessageFallback,
		limiter:   httpx.NewRateLimiter(opts.RateLimit, opts.RateWindow),
		origins:   opts.AllowedOrigins,
		logger:    logger,
	}
}

// Handler returns the relay's full router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(httpx.CORS(s.origins))

	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.With(s.limiter.Middleware).Post(AskPath, s.handleAsk)
}

// handleAsk always answers 200 with some text once the body parses; upstream
// failures become the fallback answer.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQuestionBytes)).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.completer.Complete(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("fetching AI response", "provider", s.completer.Name(), "error", err)
		answer = s.fallback
	}

	httpx.JSON(w, http.StatusOK, askResponse{Answer: answer})
}
