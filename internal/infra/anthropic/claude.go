package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-assistant/internal/infra"
)

type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	cfg        infra.CompletionConfig
}

func NewClaudeClient(apiKey string, cfg infra.CompletionConfig) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, "https://api.anthropic.com/v1", cfg)
}

func NewClaudeClientWithURL(apiKey, baseURL string, cfg infra.CompletionConfig) *ClaudeClient {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 30
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		cfg:        cfg,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *ClaudeClient) Name() string {
	return "anthropic"
}

func (c *ClaudeClient) Complete(ctx context.Context, question string) (string, error) {
	reqBody := request{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []message{
			{Role: "user", Content: question},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, c.cfg.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &infra.RetryableError{Err: fmt.Errorf("sending request: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("claude API error %d: %s", resp.StatusCode, string(respBody))
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return &infra.RetryableError{Err: err}
			}
			return err
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty response from claude")
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}
