package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const DefaultUsageLimit = 3

// UsageGate enforces the fixed trial allowance. The counter only grows
// through RecordUsage and only drops through Reset.
//
// The mutex covers a single process. Several processes sharing one store
// (for example one redis key) can still race between check and increment.
type UsageGate struct {
	store  UsageStore
	limit  int
	logger *slog.Logger

	mu   sync.Mutex
	used int
}

// NewUsageGate loads the persisted counter once and returns a gate around it.
func NewUsageGate(ctx context.Context, store UsageStore, limit int, logger *slog.Logger) (*UsageGate, error) {
	if limit <= 0 {
		limit = DefaultUsageLimit
	}

	used, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading usage count: %w", err)
	}
	if used < 0 {
		logger.Warn("negative usage count in store, treating as zero", "value", used)
		used = 0
	}

	return &UsageGate{
		store:  store,
		limit:  limit,
		logger: logger,
		used:   used,
	}, nil
}

func (g *UsageGate) Allowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used < g.limit
}

func (g *UsageGate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(0, g.limit-g.used)
}

func (g *UsageGate) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}

func (g *UsageGate) Limit() int {
	return g.limit
}

// RecordUsage consumes one attempt. The in-memory count is updated even when
// persisting fails, so the current process never hands out the attempt twice.
func (g *UsageGate) RecordUsage(ctx context.Context) error {
	g.mu.Lock()
	g.used++
	used := g.used
	g.mu.Unlock()

	g.logger.Info("usage recorded", "used", used, "limit", g.limit)

	if err := g.store.Save(ctx, used); err != nil {
		return fmt.Errorf("saving usage count: %w", err)
	}
	return nil
}

func (g *UsageGate) Reset(ctx context.Context) error {
	g.mu.Lock()
	g.used = 0
	g.mu.Unlock()

	g.logger.Info("usage reset")

	if err := g.store.Save(ctx, 0); err != nil {
		return fmt.Errorf("saving usage count: %w", err)
	}
	return nil
}
