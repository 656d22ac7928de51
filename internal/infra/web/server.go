// Package web is the assistant's control surface: a small JSON API, a
// WebSocket stream of session state and the browser capture endpoints.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/httpx"
)

const writeTimeout = 5 * time.Second

// Controller is the slice of the session controller the API drives.
type Controller interface {
	Trigger(ctx context.Context) error
	Snapshot() domain.Session
	Usage() application.UsageView
	ResetUsage(ctx context.Context) error
	SimulateUsage(ctx context.Context) error
}

// RouteRegistrar mounts extra routes, such as the HTTP capture endpoints.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type Options struct {
	DevTools       bool
	AllowedOrigins []string
	// Capture is mounted under /capture when set.
	Capture RouteRegistrar
}

type Server struct {
	ctx        context.Context
	controller Controller
	hub        *Hub
	opts       Options
	logger     *slog.Logger
}

// NewServer builds the API. Sessions triggered over HTTP run on ctx, not on
// the request context, so they outlive the request.
func NewServer(ctx context.Context, controller Controller, hub *Hub, opts Options, logger *slog.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		ctx:        ctx,
		controller: controller,
		hub:        hub,
		opts:       opts,
		logger:     logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(httpx.CORS(s.opts.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/listen", s.handleListen)

		if s.opts.DevTools {
			r.Route("/dev", func(r chi.Router) {
				r.Post("/reset", s.handleDevReset)
				r.Post("/simulate", s.handleDevSimulate)
			})
		}
	})

	r.Get("/ws/session", s.handleSessionStream)

	if s.opts.Capture != nil {
		r.Route("/capture", s.opts.Capture.RegisterRoutes)
	}

	return r
}

func (s *Server) state() State {
	return State{Session: s.controller.Snapshot(), Usage: s.controller.Usage()}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, s.state())
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	err := s.controller.Trigger(s.ctx)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusAccepted, s.state())
	case errors.Is(err, domain.ErrAccessDenied):
		httpx.Error(w, http.StatusForbidden, domain.DeniedMessage(s.controller.Usage().Limit))
	case errors.Is(err, domain.ErrSessionActive):
		httpx.Error(w, http.StatusConflict, "a session is already in progress")
	default:
		s.logger.Error("triggering session", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to start session")
	}
}

func (s *Server) handleDevReset(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.ResetUsage(r.Context()); err != nil {
		s.logger.Error("resetting usage", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to reset usage")
		return
	}
	httpx.JSON(w, http.StatusOK, s.state())
}

func (s *Server) handleDevSimulate(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.SimulateUsage(r.Context()); err != nil {
		s.logger.Error("simulating usage", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to record usage")
		return
	}
	httpx.JSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.opts.AllowedOrigins),
	})
	if err != nil {
		s.logger.Error("accepting websocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream ended")

	updates, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// The page never sends anything; CloseRead handles control frames and
	// cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())

	if err := s.write(ctx, conn, s.state()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		case state := <-updates:
			if err := s.write(ctx, conn, state); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, state State) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, conn, state); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			s.logger.Debug("websocket write error", "error", err)
		}
		return err
	}
	return nil
}

// originHosts turns configured origins into the host patterns the websocket
// origin check matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
