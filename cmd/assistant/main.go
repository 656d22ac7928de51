package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"voice-assistant/config"
	"voice-assistant/internal/application"
	"voice-assistant/internal/infra/capture"
	"voice-assistant/internal/infra/openai"
	"voice-assistant/internal/infra/pushover"
	"voice-assistant/internal/infra/relay"
	"voice-assistant/internal/infra/storage"
	"voice-assistant/internal/infra/voice"
	"voice-assistant/internal/infra/web"
)

type usageStore interface {
	application.UsageStore
	io.Closer
}

type captureSource interface {
	application.SpeechCapture
	Close() error
}

func main() {
	app := kingpin.New("assistant", "Voice assistant with a fixed trial allowance.")
	configPath := app.Flag("config", "Path to the YAML config file.").Short('c').Default("config.yaml").String()
	source := app.Flag("capture.source", "Override capture.source (http, console, microphone, file).").String()
	logLevel := app.Flag("log.level", "Override log.level.").Enum("debug", "info", "warn", "error")
	devTools := app.Flag("dev-tools", "Enable the developer reset and simulate endpoints.").Bool()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *source != "" {
		cfg.Capture.Source = *source
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *devTools {
		cfg.Server.DevTools = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log, logOutput(cfg.Capture.Source))

	if err := run(cfg, logger); err != nil {
		logger.Error("assistant error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := createUsageStore(cfg.Usage)
	if err != nil {
		return err
	}
	defer store.Close()

	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := p.Ping(pingCtx)
		pingCancel()
		if err != nil {
			return fmt.Errorf("connecting to %s usage store: %w", cfg.Usage.Store, err)
		}
	}

	gate, err := application.NewUsageGate(ctx, store, cfg.Usage.Limit, logger)
	if err != nil {
		return err
	}

	var stt application.SpeechToText = &application.NoopSTT{}
	if cfg.OpenAI.APIKey != "" {
		stt = openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.Capture.Language)
	}

	httpCapture := capture.NewHTTPSource(cfg.Capture.AuthToken, cfg.Capture.RateLimit, logger)
	source := createCaptureSource(cfg.Capture, httpCapture, stt, logger)
	defer source.Close()

	var notifier application.Notifier = &application.NoopNotifier{}
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, cfg.Pushover.Title)
	}

	hub := web.NewHub(logger)
	controller := application.NewSessionController(
		source,
		createSpeechOutput(cfg.Voice, logger),
		relay.NewClient(cfg.Relay.URL, cfg.Relay.Timeout, logger),
		gate,
		application.SessionConfig{
			NoInputTimeout:         cfg.Session.NoInputTimeout,
			ForwardEmptyTranscript: *cfg.Session.ForwardEmptyTranscript,
			ChargeFallback:         *cfg.Session.ChargeFallback,
			Voice: application.VoiceSettings{
				Preferred: cfg.Voice.Preferred,
				Pitch:     cfg.Voice.Pitch,
				Rate:      cfg.Voice.Rate,
			},
		},
		logger,
		application.WithNotifier(notifier),
		application.WithObservers(hub),
	)

	opts := web.Options{
		DevTools:       cfg.Server.DevTools,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Capture.Source == "http" {
		opts.Capture = httpCapture
	}
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.NewServer(ctx, controller, hub, opts, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("control server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	logger.Info("starting voice assistant",
		"capture", cfg.Capture.Source,
		"voice", cfg.Voice.Engine,
		"relay", cfg.Relay.URL,
		"used", gate.Used(),
		"limit", gate.Limit(),
	)

	// Local sources listen hands-free; the http source waits for the page to
	// call /api/listen.
	loopErr := make(chan error, 1)
	if cfg.Capture.Source != "http" {
		go func() {
			loopErr <- application.NewAssistant(controller, cfg.Session.Pause, logger).Run(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		runErr = err
	case err := <-loopErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutting down control server", "error", err)
	}

	return runErr
}

func createUsageStore(cfg config.UsageConfig) (usageStore, error) {
	switch cfg.Store {
	case "redis":
		return storage.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix), nil
	case "memory":
		return storage.NewMemoryStore(0), nil
	default:
		store, err := storage.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func createCaptureSource(cfg config.CaptureConfig, httpSource *capture.HTTPSource, stt application.SpeechToText, logger *slog.Logger) captureSource {
	switch cfg.Source {
	case "console":
		return capture.NewConsoleSource(cfg.Prompt, logger)
	case "file":
		return &closeless{capture.NewFileSource(cfg.FileDir, stt, logger)}
	case "microphone":
		return capture.NewMicrophoneSource(cfg.SampleRate, cfg.MaxRecord, stt, logger)
	default:
		return &closeless{httpSource}
	}
}

// closeless adapts sources that hold nothing open between sessions.
type closeless struct {
	application.SpeechCapture
}

func (closeless) Close() error { return nil }

func createSpeechOutput(cfg config.VoiceConfig, logger *slog.Logger) application.SpeechOutput {
	switch cfg.Engine {
	case "espeak":
		return voice.NewEspeakSpeaker(cfg.Command, logger)
	default:
		return voice.NewConsoleSpeaker(os.Stdout, cfg.Voices)
	}
}

// logOutput keeps log lines off stdout while the console source owns the
// terminal.
func logOutput(source string) io.Writer {
	if source == "console" {
		return os.Stderr
	}
	return os.Stdout
}

func setupLogger(cfg config.LogConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
