package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"voice-assistant/internal/domain"
)

const (
	espeakBasePitch = 50
	espeakBaseRate  = 175
)

// EspeakSpeaker drives the espeak-ng command line synthesizer.
type EspeakSpeaker struct {
	command string
	logger  *slog.Logger

	output func(ctx context.Context, name string, args ...string) ([]byte, error)
	start  func(name string, args ...string) (wait func() error, err error)
}

func NewEspeakSpeaker(command string, logger *slog.Logger) *EspeakSpeaker {
	if command == "" {
		command = "espeak-ng"
	}
	return &EspeakSpeaker{
		command: command,
		logger:  logger,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		start: func(name string, args ...string) (func() error, error) {
			// Not bound to the session context: playback outlives the session.
			cmd := exec.Command(name, args...)
			if err := cmd.Start(); err != nil {
				return nil, err
			}
			return cmd.Wait, nil
		},
	}
}

func (e *EspeakSpeaker) Name() string {
	return "espeak"
}

func (e *EspeakSpeaker) Voices(ctx context.Context) ([]domain.Voice, error) {
	out, err := e.output(ctx, e.command, "--voices")
	if err != nil {
		return nil, fmt.Errorf("listing espeak voices: %w", err)
	}
	return parseVoices(out), nil
}

// Speak queues the utterance and returns without waiting for playback.
func (e *EspeakSpeaker) Speak(_ context.Context, utt domain.Utterance) error {
	args := []string{
		"-p", strconv.Itoa(scale(utt.Pitch, espeakBasePitch, 0, 99)),
		"-s", strconv.Itoa(scale(utt.Rate, espeakBaseRate, 80, 450)),
	}
	if v := voiceArg(utt.Voice); v != "" {
		args = append(args, "-v", v)
	}
	args = append(args, "--", utt.Text)

	wait, err := e.start(e.command, args...)
	if err != nil {
		return fmt.Errorf("starting %s: %w", e.command, err)
	}

	go func() {
		if err := wait(); err != nil {
			e.logger.Warn("espeak playback failed", "error", err)
		}
	}()
	return nil
}

func voiceArg(v domain.Voice) string {
	if v.Language != "" {
		return v.Language
	}
	return v.Name
}

func scale(factor float64, base, lo, hi int) int {
	if factor <= 0 {
		factor = 1
	}
	n := int(math.Round(factor * float64(base)))
	return max(lo, min(hi, n))
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 3)
func parseVoices(out []byte) []domain.Voice {
	var voices []domain.Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, domain.Voice{
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}
