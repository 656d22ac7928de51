//go:build portaudio
// +build portaudio

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
)

const (
	framesPerBuffer  = 1024
	silenceThreshold = int16(500)
)

// MicrophoneSource records from the default input device until the speaker
// pauses, then transcribes the recording.
type MicrophoneSource struct {
	sampleRate int
	maxRecord  time.Duration
	stt        application.SpeechToText
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []int16
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMicrophoneSource(sampleRate int, maxRecord time.Duration, stt application.SpeechToText, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		maxRecord:  maxRecord,
		stt:        stt,
		logger:     logger,
		buffer:     make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(ctx context.Context) (<-chan domain.CaptureEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	if m.stream == nil {
		if err := m.openLocked(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCaptureUnavailable, err)
		}
	}

	rctx, cancel := context.WithCancel(ctx)
	events := make(chan domain.CaptureEvent, 1)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		m.record(rctx, events)
	}()

	return events, nil
}

func (m *MicrophoneSource) openLocked() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.stream = stream
	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *MicrophoneSource) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
}

func (m *MicrophoneSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
		m.stream = nil
		portaudio.Terminate()
	}
	return nil
}

// record waits for speech, then captures until one second of trailing
// silence or maxRecord. Nothing is sent once ctx is cancelled.
func (m *MicrophoneSource) record(ctx context.Context, events chan<- domain.CaptureEvent) {
	maxSamples := int(m.maxRecord.Seconds() * float64(m.sampleRate))
	samples := make([]int16, 0, maxSamples)
	heardSpeech := false
	silent := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if err := m.stream.Read(); err != nil {
			m.logger.Error("reading from stream", "error", err)
			events <- domain.ErrorEvent(domain.CodeAudioCapture)
			return
		}

		quiet := isSilent(m.buffer, silenceThreshold)
		if !heardSpeech {
			if quiet {
				continue
			}
			heardSpeech = true
		}

		samples = append(samples, m.buffer...)
		if quiet {
			silent += len(m.buffer)
		} else {
			silent = 0
		}

		if silent > m.sampleRate || len(samples) >= maxSamples {
			break
		}
	}

	wav := samplesToWav(samples, m.sampleRate)
	text, err := m.stt.Transcribe(ctx, wav)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Error("transcribing recording", "error", err)
		events <- domain.ErrorEvent(domain.CodeNetwork)
		return
	}
	events <- domain.ResultEvent(text)
}
