package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chzyer/readline"

	"voice-assistant/internal/domain"
)

type scriptedReader struct {
	lines chan readResult
	reads atomic.Int32
}

type readResult struct {
	line string
	err  error
}

func newScriptedReader() *scriptedReader {
	return &scriptedReader{lines: make(chan readResult)}
}

func (s *scriptedReader) Readline() (string, error) {
	s.reads.Add(1)
	r, ok := <-s.lines
	if !ok {
		return "", io.EOF
	}
	return r.line, r.err
}

func (s *scriptedReader) Close() error { return nil }

func newTestConsole(reader lineReader, openErr error) *ConsoleSource {
	c := NewConsoleSource("> ", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.open = func() (lineReader, error) { return reader, openErr }
	return c
}

func receive(t *testing.T, events <-chan domain.CaptureEvent) domain.CaptureEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no capture event")
		return domain.CaptureEvent{}
	}
}

func mustStart(t *testing.T, c *ConsoleSource) <-chan domain.CaptureEvent {
	t.Helper()
	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return events
}

func TestConsoleSource_TypedLineIsResult(t *testing.T) {
	reader := newScriptedReader()
	c := newTestConsole(reader, nil)
	events := mustStart(t, c)

	reader.lines <- readResult{line: "  tell me a joke  "}
	if got, want := receive(t, events), domain.ResultEvent("tell me a joke"); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestConsoleSource_InterruptAborts(t *testing.T) {
	reader := newScriptedReader()
	c := newTestConsole(reader, nil)
	events := mustStart(t, c)

	reader.lines <- readResult{err: readline.ErrInterrupt}
	if got, want := receive(t, events), domain.ErrorEvent(domain.CodeAborted); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// Interrupt only aborts the current session.
	if _, err := c.Start(context.Background()); err != nil {
		t.Errorf("restart after interrupt: %v", err)
	}
}

func TestConsoleSource_EOFClosesSource(t *testing.T) {
	reader := newScriptedReader()
	c := newTestConsole(reader, nil)
	events := mustStart(t, c)

	close(reader.lines)
	if got, want := receive(t, events), domain.ErrorEvent(domain.CodeAborted); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := c.Start(context.Background()); !errors.Is(err, domain.ErrCaptureUnavailable) {
		t.Errorf("restart after EOF: got %v, want ErrCaptureUnavailable", err)
	}
}

func TestConsoleSource_OpenFailure(t *testing.T) {
	c := newTestConsole(nil, errors.New("not a terminal"))

	if _, err := c.Start(context.Background()); !errors.Is(err, domain.ErrCaptureUnavailable) {
		t.Errorf("got %v, want ErrCaptureUnavailable", err)
	}
}

func TestConsoleSource_DropsInputWhileStopped(t *testing.T) {
	reader := newScriptedReader()
	c := newTestConsole(reader, nil)
	mustStart(t, c)
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	reader.lines <- readResult{line: "ignored"}
	deadline := time.Now().Add(time.Second)
	for reader.reads.Load() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("reader was not polled again, reads=%d", reader.reads.Load())
		}
		time.Sleep(time.Millisecond)
	}

	events := mustStart(t, c)
	reader.lines <- readResult{line: "kept"}
	if got, want := receive(t, events), domain.ResultEvent("kept"); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
