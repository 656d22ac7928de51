package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
)

// FileSource watches a directory. A .txt file is a ready transcript; audio
// files are transcribed first. Each file is used once and renamed to
// <name>.processed.
type FileSource struct {
	dir      string
	stt      application.SpeechToText
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFileSource(dir string, stt application.SpeechToText, logger *slog.Logger) *FileSource {
	return &FileSource{
		dir:      dir,
		stt:      stt,
		interval: 500 * time.Millisecond,
		logger:   logger,
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(ctx context.Context) (<-chan domain.CaptureEvent, error) {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating capture dir: %v", domain.ErrCaptureUnavailable, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()

	wctx, cancel := context.WithCancel(ctx)
	events := make(chan domain.CaptureEvent, 1)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done

	go func() {
		defer close(done)
		f.watch(wctx, events)
	}()

	return events, nil
}

func (f *FileSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	return nil
}

func (f *FileSource) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	f.done = nil
}

func (f *FileSource) watch(ctx context.Context, events chan<- domain.CaptureEvent) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev, ok := f.checkForNewFile(ctx)
			if !ok {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			events <- ev
			return
		}
	}
}

func (f *FileSource) checkForNewFile(ctx context.Context) (domain.CaptureEvent, bool) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.logger.Error("reading capture dir", "dir", f.dir, "error", err)
		return domain.ErrorEvent(domain.CodeAudioCapture), true
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && !isAudioExt(ext) {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			f.logger.Error("reading capture file", "path", path, "error", err)
			return domain.ErrorEvent(domain.CodeAudioCapture), true
		}

		if err := os.Rename(path, path+".processed"); err != nil {
			f.logger.Warn("marking capture file processed", "path", path, "error", err)
		}

		if ext == ".txt" {
			return domain.ResultEvent(strings.TrimSpace(string(data))), true
		}

		text, err := f.stt.Transcribe(ctx, data)
		if err != nil {
			f.logger.Error("transcribing capture file", "path", path, "error", err)
			return domain.ErrorEvent(domain.CodeNetwork), true
		}
		return domain.ResultEvent(text), true
	}

	return domain.CaptureEvent{}, false
}

func isAudioExt(ext string) bool {
	switch ext {
	case ".wav", ".mp3", ".m4a", ".webm":
		return true
	default:
		return false
	}
}
