package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) NewTimer(d time.Duration) application.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{c: make(chan time.Time, 1), d: d}
	f.timers = append(f.timers, t)
	return t
}

// Fire expires every timer that has not been stopped and returns how many fired.
func (f *fakeClock) Fire() int {
	f.mu.Lock()
	f.now = f.now.Add(10 * time.Second)
	now := f.now
	timers := append([]*fakeTimer(nil), f.timers...)
	f.mu.Unlock()

	fired := 0
	for _, t := range timers {
		if t.stopped.CompareAndSwap(false, true) {
			t.c <- now
			fired++
		}
	}
	return fired
}

func (f *fakeClock) lastTimeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.timers) == 0 {
		return 0
	}
	return f.timers[len(f.timers)-1].d
}

type fakeTimer struct {
	c       chan time.Time
	d       time.Duration
	stopped atomic.Bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	return t.stopped.CompareAndSwap(false, true)
}

type fakeCapture struct {
	mu       sync.Mutex
	current  chan domain.CaptureEvent
	starts   int
	stops    int
	startErr error
	started  chan struct{}
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{started: make(chan struct{}, 16)}
}

func (f *fakeCapture) Name() string { return "fake" }

func (f *fakeCapture) Start(_ context.Context) (<-chan domain.CaptureEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.current = make(chan domain.CaptureEvent, 1)
	f.started <- struct{}{}
	return f.current, nil
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeCapture) emit(ev domain.CaptureEvent) {
	f.mu.Lock()
	ch := f.current
	f.mu.Unlock()
	ch <- ev
}

func (f *fakeCapture) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeCapture) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeOutput struct {
	mu     sync.Mutex
	voices []domain.Voice
	spoken []domain.Utterance
}

func (f *fakeOutput) Name() string { return "fake" }

func (f *fakeOutput) Voices(_ context.Context) ([]domain.Voice, error) {
	return f.voices, nil
}

func (f *fakeOutput) Speak(_ context.Context, utt domain.Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, utt)
	return nil
}

func (f *fakeOutput) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, u := range f.spoken {
		out = append(out, u.Text)
	}
	return out
}

// fakeAnswers answers from a map; when hold is set each call blocks until
// the test sends on it.
type fakeAnswers struct {
	answers  map[string]string
	fallback bool
	hold     chan struct{}
	asked    chan string
	calls    atomic.Int32
}

func (f *fakeAnswers) Ask(_ context.Context, question string) domain.Answer {
	f.calls.Add(1)
	if f.asked != nil {
		f.asked <- question
	}
	if f.hold != nil {
		<-f.hold
	}
	if f.fallback {
		return domain.Answer{Text: domain.MessageFallback, Fallback: true}
	}
	return domain.Answer{Text: f.answers[question]}
}

// recordingObserver keeps every status and usage it is shown. With
// idleDelay set it stalls on idle snapshots before recording them.
type recordingObserver struct {
	idleDelay time.Duration

	mu       sync.Mutex
	statuses []domain.Status
	usages   []application.UsageView
}

func (r *recordingObserver) SessionChanged(s domain.Session, usage application.UsageView) {
	if s.Status == domain.StatusIdle && r.idleDelay > 0 {
		time.Sleep(r.idleDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s.Status)
	r.usages = append(r.usages, usage)
}

func (r *recordingObserver) seen() []domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Status(nil), r.statuses...)
}

func (r *recordingObserver) last() (domain.Status, application.UsageView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return "", application.UsageView{}
	}
	return r.statuses[len(r.statuses)-1], r.usages[len(r.usages)-1]
}

type countingNotifier struct {
	messages []string
}

func (c *countingNotifier) Notify(_ context.Context, message string) error {
	c.messages = append(c.messages, message)
	return nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
