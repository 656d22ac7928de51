package application

import (
	"context"

	"voice-assistant/internal/domain"
)

// SpeechCapture wraps a speech recognizer. Each Start yields a channel that
// carries at most one terminal event. Stop is idempotent and may be called
// after the event was delivered; events produced after Stop are dropped.
//
// Start returns domain.ErrCaptureUnavailable when no recognizer exists.
type SpeechCapture interface {
	Start(ctx context.Context) (<-chan domain.CaptureEvent, error)
	Stop() error
	Name() string
}
