package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-assistant/internal/domain"
)

type SessionConfig struct {
	NoInputTimeout time.Duration
	// ForwardEmptyTranscript sends empty recognition results to the relay
	// like any other question. When false they end the session as no input.
	ForwardEmptyTranscript bool
	// ChargeFallback consumes an attempt even when the answer is the relay
	// client's fallback text.
	ChargeFallback bool
	Voice          VoiceSettings
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		NoInputTimeout:         10 * time.Second,
		ForwardEmptyTranscript: true,
		ChargeFallback:         true,
		Voice:                  DefaultVoiceSettings(),
	}
}

// SessionController runs the listen, answer, speak cycle. At most one
// session is in flight; the guard lives here, not in the presentation layer.
type SessionController struct {
	capture  SpeechCapture
	output   SpeechOutput
	answers  AnswerSource
	gate     *UsageGate
	notifier Notifier
	observer observers
	clock    Clock
	cfg      SessionConfig
	logger   *slog.Logger

	// publishMu is taken before mu and held until observers have the
	// snapshot, so observers see transitions in the order they happened.
	publishMu sync.Mutex
	mu        sync.Mutex
	busy      bool
	session   domain.Session
}

type ControllerOption func(*SessionController)

func WithClock(clock Clock) ControllerOption {
	return func(c *SessionController) { c.clock = clock }
}

func WithNotifier(n Notifier) ControllerOption {
	return func(c *SessionController) { c.notifier = n }
}

func WithObservers(obs ...SessionObserver) ControllerOption {
	return func(c *SessionController) {
		c.observer = append(c.observer, obs...)
	}
}

func NewSessionController(
	capture SpeechCapture,
	output SpeechOutput,
	answers AnswerSource,
	gate *UsageGate,
	cfg SessionConfig,
	logger *slog.Logger,
	opts ...ControllerOption,
) *SessionController {
	if cfg.NoInputTimeout <= 0 {
		cfg.NoInputTimeout = DefaultSessionConfig().NoInputTimeout
	}

	c := &SessionController{
		capture:  capture,
		output:   output,
		answers:  answers,
		gate:     gate,
		notifier: &NoopNotifier{},
		clock:    SystemClock(),
		cfg:      cfg,
		logger:   logger,
		session:  domain.Session{Status: domain.StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Listen runs one complete session and returns its final state.
// Capture errors and timeouts are outcomes, not errors; the returned error
// is non-nil only when no session could run (denied, already active,
// capture unavailable) or ctx ended it.
func (c *SessionController) Listen(ctx context.Context) (domain.Session, error) {
	if err := c.begin(); err != nil {
		return c.Snapshot(), err
	}
	return c.run(ctx)
}

// Trigger starts a session in the background. ctx must outlive the caller's
// request; cancelling it cancels the session.
func (c *SessionController) Trigger(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	go func() {
		if _, err := c.run(ctx); err != nil {
			c.logger.Warn("session ended early", "error", err)
		}
	}()
	return nil
}

func (c *SessionController) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *SessionController) Usage() UsageView {
	return UsageView{
		Used:      c.gate.Used(),
		Limit:     c.gate.Limit(),
		Remaining: c.gate.Remaining(),
	}
}

// ResetUsage is the developer reset. It goes through the same gate contract
// as the normal flow.
func (c *SessionController) ResetUsage(ctx context.Context) error {
	if err := c.gate.Reset(ctx); err != nil {
		return err
	}
	c.devMessage(domain.MessageDevReset, true)
	return nil
}

// SimulateUsage consumes one attempt without running a session.
func (c *SessionController) SimulateUsage(ctx context.Context) error {
	if err := c.gate.RecordUsage(ctx); err != nil {
		return err
	}
	c.devMessage(fmt.Sprintf("Developer: Simulated usage (%d/%d)", c.gate.Used(), c.gate.Limit()), false)
	return nil
}

// devMessage shows msg on an idle session. A running session keeps its
// status text, but observers still get the new usage.
func (c *SessionController) devMessage(msg string, clear bool) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	if !c.busy {
		if clear {
			c.session.Transcript = ""
			c.session.Answer = ""
		}
		c.session.StatusMessage = msg
	}
	snap := c.session
	c.mu.Unlock()
	c.publish(snap)
}

func (c *SessionController) begin() error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return domain.ErrSessionActive
	}
	if !c.gate.Allowed() {
		c.session.StatusMessage = domain.DeniedMessage(c.gate.Limit())
		snap := c.session
		c.mu.Unlock()
		c.logger.Info("session denied, allowance exhausted", "limit", c.gate.Limit())
		c.publish(snap)
		return domain.ErrAccessDenied
	}

	c.busy = true
	c.session = domain.Session{
		ID:            uuid.NewString(),
		Status:        domain.StatusListening,
		StatusMessage: domain.MessageListening,
		StartedAt:     c.clock.Now(),
	}
	snap := c.session
	c.mu.Unlock()

	c.logger.Info("session started", "session", snap.ID, "capture", c.capture.Name())
	c.publish(snap)
	return nil
}

func (c *SessionController) run(ctx context.Context) (domain.Session, error) {
	timer := c.clock.NewTimer(c.cfg.NoInputTimeout)
	defer timer.Stop()

	events, err := c.capture.Start(ctx)
	if err != nil {
		timer.Stop()
		c.logger.Error("starting speech capture", "source", c.capture.Name(), "error", err)
		c.update(func(s *domain.Session) {
			s.Status = domain.StatusError
			if errors.Is(err, domain.ErrCaptureUnavailable) {
				s.Outcome = domain.OutcomeCaptureUnavailable
				s.StatusMessage = domain.MessageCaptureUnavailable
				return
			}
			s.Outcome = domain.OutcomeCaptureError
			s.StatusMessage = domain.CaptureErrorMessage(domain.CodeAudioCapture)
		})
		return c.settle(), fmt.Errorf("starting capture: %w", err)
	}

	var event domain.CaptureEvent
	select {
	case ev, ok := <-events:
		timer.Stop()
		c.stopCapture()
		if !ok {
			ev = domain.ErrorEvent(domain.CodeAborted)
		}
		event = ev
	case <-timer.C():
		c.stopCapture()
		return c.noInput(ctx), nil
	case <-ctx.Done():
		c.stopCapture()
		c.update(func(s *domain.Session) { s.Outcome = domain.OutcomeCancelled })
		return c.settle(), ctx.Err()
	}

	if event.Kind == domain.CaptureError {
		c.logger.Warn("speech capture error", "code", event.Code)
		c.update(func(s *domain.Session) {
			s.Status = domain.StatusError
			s.Outcome = domain.OutcomeCaptureError
			s.StatusMessage = domain.CaptureErrorMessage(event.Code)
		})
		return c.settle(), nil
	}

	if strings.TrimSpace(event.Text) == "" && !c.cfg.ForwardEmptyTranscript {
		return c.noInput(ctx), nil
	}

	c.logger.Info("transcript received", "text", event.Text)
	c.update(func(s *domain.Session) {
		s.Status = domain.StatusAwaitingAnswer
		s.Transcript = event.Text
		s.StatusMessage = ""
	})

	answer := c.answers.Ask(ctx, event.Text)
	if ctx.Err() != nil {
		c.update(func(s *domain.Session) { s.Outcome = domain.OutcomeCancelled })
		return c.settle(), ctx.Err()
	}
	if answer.Fallback {
		c.logger.Warn("relay returned fallback answer")
	}

	c.update(func(s *domain.Session) {
		s.Status = domain.StatusSpeaking
		s.Answer = answer.Text
		s.Outcome = domain.OutcomeAnswered
	})
	c.say(ctx, answer.Text)

	if !answer.Fallback || c.cfg.ChargeFallback {
		c.charge(ctx)
	}

	return c.settle(), nil
}

func (c *SessionController) noInput(ctx context.Context) domain.Session {
	c.logger.Info("no input within timeout", "timeout", c.cfg.NoInputTimeout)
	c.update(func(s *domain.Session) {
		s.Status = domain.StatusTimedOut
		s.Outcome = domain.OutcomeNoInput
		s.StatusMessage = domain.MessageNoInput
	})
	c.say(ctx, domain.MessageNoInput)
	return c.settle()
}

// say is best-effort and skipped once the allowance is used up.
func (c *SessionController) say(ctx context.Context, text string) {
	if !c.gate.Allowed() {
		c.logger.Debug("allowance exhausted, not speaking")
		return
	}

	voices, err := c.output.Voices(ctx)
	if err != nil {
		c.logger.Warn("listing voices", "output", c.output.Name(), "error", err)
	}

	voice, ok := SelectVoice(voices, c.cfg.Voice.Preferred)
	if !ok {
		c.logger.Debug("no voices available, using synthesizer default")
	}

	err = c.output.Speak(ctx, domain.Utterance{
		Text:  text,
		Voice: voice,
		Pitch: c.cfg.Voice.Pitch,
		Rate:  c.cfg.Voice.Rate,
	})
	if err != nil {
		c.logger.Warn("speaking", "output", c.output.Name(), "error", err)
	}
}

func (c *SessionController) charge(ctx context.Context) {
	if err := c.gate.RecordUsage(ctx); err != nil {
		c.logger.Error("recording usage", "error", err)
	}
	if c.gate.Allowed() {
		return
	}
	msg := fmt.Sprintf("All %d free trials used", c.gate.Limit())
	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.logger.Error("notifying exhaustion", "error", err)
	}
}

func (c *SessionController) stopCapture() {
	if err := c.capture.Stop(); err != nil {
		c.logger.Warn("stopping speech capture", "error", err)
	}
}

func (c *SessionController) update(fn func(s *domain.Session)) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	fn(&c.session)
	snap := c.session
	c.mu.Unlock()
	c.publish(snap)
}

// settle returns the session to idle and frees the controller for the
// next trigger in the same critical section.
func (c *SessionController) settle() domain.Session {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	c.session.Status = domain.StatusIdle
	c.session.EndedAt = c.clock.Now()
	c.busy = false
	snap := c.session
	c.mu.Unlock()

	c.logger.Info("session ended", "session", snap.ID, "outcome", snap.Outcome)
	c.publish(snap)
	return snap
}

func (c *SessionController) publish(snap domain.Session) {
	c.observer.SessionChanged(snap, c.Usage())
}
