package capture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/capture"
)

type stubSTT struct {
	text string
	err  error
}

func (s stubSTT) Transcribe(_ context.Context, _ []byte) (string, error) {
	return s.text, s.err
}

func writeInbox(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// firstEvent starts source and waits for its event.
func firstEvent(t *testing.T, source *capture.FileSource) domain.CaptureEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := source.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer source.Stop()

	select {
	case ev := <-events:
		return ev
	case <-ctx.Done():
		t.Fatal("no event from file source")
		return domain.CaptureEvent{}
	}
}

func TestFileSource_TextFile(t *testing.T) {
	dir := t.TempDir()
	writeInbox(t, dir, "question.txt", "how tall is everest\n")

	source := capture.NewFileSource(dir, &application.NoopSTT{}, discardLogger())

	if got, want := firstEvent(t, source), domain.ResultEvent("how tall is everest"); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "question.txt.processed")); err != nil {
		t.Errorf("file should be marked processed: %v", err)
	}
}

func TestFileSource_AudioFileIsTranscribed(t *testing.T) {
	dir := t.TempDir()
	writeInbox(t, dir, "command.wav", "RIFF....WAVEfmt audio")

	source := capture.NewFileSource(dir, stubSTT{text: "what is the weather"}, discardLogger())

	if got, want := firstEvent(t, source), domain.ResultEvent("what is the weather"); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFileSource_TranscriptionFailureIsNetworkError(t *testing.T) {
	dir := t.TempDir()
	writeInbox(t, dir, "command.wav", "RIFF")

	source := capture.NewFileSource(dir, &application.NoopSTT{}, discardLogger())

	if got, want := firstEvent(t, source), domain.ErrorEvent(domain.CodeNetwork); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFileSource_StopEndsWatch(t *testing.T) {
	source := capture.NewFileSource(t.TempDir(), &application.NoopSTT{}, discardLogger())

	events, err := source.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := source.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after stop: %+v", ev)
	case <-time.After(700 * time.Millisecond):
	}
}
