package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"voice-assistant/config"
	"voice-assistant/internal/infra"
	"voice-assistant/internal/infra/anthropic"
	"voice-assistant/internal/infra/gemini"
	"voice-assistant/internal/infra/openai"
	"voice-assistant/internal/infra/relay"
)

func main() {
	app := kingpin.New("relay", "Forwards questions to a language model and returns short answers.")
	envFile := app.Flag("env-file", "Optional .env file to load before reading the environment.").Default(".env").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := godotenv.Load(*envFile); err != nil {
		slog.Info("no .env file found, using environment variables", "path", *envFile)
	}

	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	completer := createCompleter(cfg)
	srv := relay.NewServer(completer, relay.ServerOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
	}, logger)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("relay listening", "addr", cfg.Addr(), "provider", completer.Name())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// createCompleter makes one upstream attempt per question; the client side
// already falls back when the relay is slow or fails.
func createCompleter(cfg *config.RelayConfig) relay.Completer {
	completion := infra.CompletionConfig{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Retry:       infra.SingleAttempt(),
	}

	switch cfg.Provider {
	case "anthropic":
		completion.Model = cfg.AnthropicModel
		return anthropic.NewClaudeClient(cfg.AnthropicKey, completion)
	case "gemini":
		completion.Model = cfg.GeminiModel
		return gemini.NewClient(cfg.GeminiAPIKey, completion)
	default:
		completion.Model = cfg.OpenAIModel
		return openai.NewChatClient(cfg.OpenAIAPIKey, completion)
	}
}

func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
