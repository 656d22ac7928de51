package web

import (
	"log/slog"
	"sync"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
)

// State is the document pushed to the page on every transition.
type State struct {
	Session domain.Session        `json:"session"`
	Usage   application.UsageView `json:"usage"`
}

const subscriberBuffer = 16

// Hub fans session transitions out to connected WebSocket clients.
// A subscriber that falls behind loses its oldest pending states.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[chan State]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[chan State]struct{}),
	}
}

func (h *Hub) SessionChanged(session domain.Session, usage application.UsageView) {
	state := State{Session: session, Usage: usage}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
			h.logger.Warn("dropping session update for slow subscriber")
		}
	}
}

func (h *Hub) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
