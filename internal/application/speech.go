package application

import (
	"context"
	"fmt"
	"strings"

	"voice-assistant/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopSTT is used by capture sources that can only deliver text.
// It returns an error if called with actual audio data.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", fmt.Errorf("speech-to-text not configured: set openai.api_key to enable audio transcription")
}

// SpeechOutput wraps a speech synthesizer. Speak returns once playback has
// been handed to the synthesizer; it does not wait for playback to finish.
type SpeechOutput interface {
	Voices(ctx context.Context) ([]domain.Voice, error)
	Speak(ctx context.Context, utt domain.Utterance) error
	Name() string
}

type VoiceSettings struct {
	Preferred []string
	Pitch     float64
	Rate      float64
}

func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Preferred: []string{"daniel", "english"},
		Pitch:     1.1,
		Rate:      1.0,
	}
}

// SelectVoice returns the first voice whose name contains any of the
// preferred substrings, ignoring case. Without a match it falls back to the
// first voice. ok is false only when there are no voices at all.
func SelectVoice(voices []domain.Voice, preferred []string) (domain.Voice, bool) {
	if len(voices) == 0 {
		return domain.Voice{}, false
	}

	for _, v := range voices {
		name := strings.ToLower(v.Name)
		for _, p := range preferred {
			if p != "" && strings.Contains(name, strings.ToLower(p)) {
				return v, true
			}
		}
	}

	return voices[0], true
}
