package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voice-assistant/internal/domain"
)

const deniedPollInterval = 5 * time.Second

// Assistant drives the session controller hands-free: as soon as one session
// settles the next one starts listening. Used with capture sources that
// have no trigger control of their own (console, microphone, file).
type Assistant struct {
	controller *SessionController
	pause      time.Duration
	logger     *slog.Logger
}

func NewAssistant(controller *SessionController, pause time.Duration, logger *slog.Logger) *Assistant {
	return &Assistant{
		controller: controller,
		pause:      pause,
		logger:     logger,
	}
}

func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("assistant ready, listening for questions")

	denied := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		session, err := a.controller.Listen(ctx)
		switch {
		case err == nil:
			denied = false
			a.logger.Info("session complete",
				"outcome", session.Outcome,
				"transcript", session.Transcript,
				"answer", session.Answer,
				"remaining", a.controller.Usage().Remaining,
			)
		case errors.Is(err, domain.ErrAccessDenied):
			if !denied {
				a.logger.Warn("free trials used up, waiting for reset", "message", session.StatusMessage)
			}
			denied = true
		case errors.Is(err, domain.ErrCaptureUnavailable):
			return fmt.Errorf("running session: %w", err)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			a.logger.Error("running session", "error", err)
		}

		pause := a.pause
		if denied {
			pause = max(pause, deniedPollInterval)
		}
		if err := wait(ctx, pause); err != nil {
			return err
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
