//go:build !portaudio
// +build !portaudio

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
)

// MicrophoneSource stub when portaudio is not available
type MicrophoneSource struct {
	logger *slog.Logger
}

func NewMicrophoneSource(sampleRate int, maxRecord time.Duration, stt application.SpeechToText, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{logger: logger}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) (<-chan domain.CaptureEvent, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags portaudio", domain.ErrCaptureUnavailable)
}

func (m *MicrophoneSource) Stop() error {
	return nil
}

func (m *MicrophoneSource) Close() error {
	return nil
}
