package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"voice-assistant/internal/domain"
)

type lineReader interface {
	Readline() (string, error)
	Close() error
}

// ConsoleSource treats each typed line as one recognized utterance.
// Ctrl-C aborts the current session; Ctrl-D closes the source.
type ConsoleSource struct {
	prompt string
	logger *slog.Logger
	open   func() (lineReader, error)

	once    sync.Once
	reader  lineReader
	openErr error

	mu      sync.Mutex
	current chan domain.CaptureEvent
	closed  bool
}

func NewConsoleSource(prompt string, logger *slog.Logger) *ConsoleSource {
	return &ConsoleSource{
		prompt: prompt,
		logger: logger,
		open: func() (lineReader, error) {
			return readline.NewEx(&readline.Config{
				Prompt:          prompt,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
		},
	}
}

func (c *ConsoleSource) Name() string {
	return "console"
}

func (c *ConsoleSource) Start(_ context.Context) (<-chan domain.CaptureEvent, error) {
	c.once.Do(func() {
		c.reader, c.openErr = c.open()
		if c.openErr == nil {
			go c.readLoop()
		}
	})
	if c.openErr != nil {
		return nil, fmt.Errorf("%w: opening console: %v", domain.ErrCaptureUnavailable, c.openErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%w: console closed", domain.ErrCaptureUnavailable)
	}

	ch := make(chan domain.CaptureEvent, 1)
	c.current = ch
	return ch, nil
}

func (c *ConsoleSource) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	return nil
}

func (c *ConsoleSource) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *ConsoleSource) readLoop() {
	for {
		line, err := c.reader.Readline()
		switch {
		case err == nil:
			if !c.deliver(domain.ResultEvent(strings.TrimSpace(line)), false) {
				c.logger.Debug("dropping console input while not listening", "text", line)
			}
		case errors.Is(err, readline.ErrInterrupt):
			c.deliver(domain.ErrorEvent(domain.CodeAborted), false)
		default:
			if !errors.Is(err, io.EOF) {
				c.logger.Error("reading console", "error", err)
			}
			c.deliver(domain.ErrorEvent(domain.CodeAborted), true)
			return
		}
	}
}

func (c *ConsoleSource) deliver(ev domain.CaptureEvent, closing bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if closing {
		c.closed = true
	}
	if c.current == nil {
		return false
	}
	c.current <- ev
	c.current = nil
	return true
}
