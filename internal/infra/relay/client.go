// Package relay holds both ends of the question relay: the client the
// assistant uses and the HTTP server that forwards to the upstream model.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"voice-assistant/internal/domain"
)

const AskPath = "/api/ask"

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// Client asks the relay server. Every failure is folded into the fallback
// answer; callers never see a transport error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   string
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		fallback:   domain.MessageFallback,
		logger:     logger,
	}
}

func (c *Client) Ask(ctx context.Context, question string) domain.Answer {
	answer, err := c.ask(ctx, question)
	if err != nil {
		c.logger.Error("asking relay", "url", c.baseURL, "error", err)
		return domain.Answer{Text: c.fallback, Fallback: true}
	}
	return domain.Answer{Text: answer}
}

func (c *Client) ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AskPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("relay error %d: %s", resp.StatusCode, string(respBody))
	}

	var result askResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if result.Answer == "" {
		return "", fmt.Errorf("empty answer from relay")
	}

	return result.Answer, nil
}
