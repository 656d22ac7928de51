// Package voice holds the speech output adapters.
package voice

import (
	"context"
	"fmt"
	"io"
	"sync"

	"voice-assistant/internal/domain"
)

// ConsoleSpeaker prints answers instead of synthesizing them. Useful on
// headless hosts and in the console capture mode.
type ConsoleSpeaker struct {
	mu     sync.Mutex
	out    io.Writer
	voices []domain.Voice
}

func NewConsoleSpeaker(out io.Writer, voiceNames []string) *ConsoleSpeaker {
	voices := make([]domain.Voice, 0, len(voiceNames))
	for _, name := range voiceNames {
		voices = append(voices, domain.Voice{Name: name})
	}
	return &ConsoleSpeaker{out: out, voices: voices}
}

func (c *ConsoleSpeaker) Name() string {
	return "console"
}

func (c *ConsoleSpeaker) Voices(_ context.Context) ([]domain.Voice, error) {
	return c.voices, nil
}

func (c *ConsoleSpeaker) Speak(_ context.Context, utt domain.Utterance) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "[voice] %s\n", utt.Text); err != nil {
		return fmt.Errorf("writing utterance: %w", err)
	}
	return nil
}
