package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

type ChatClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	cfg        infra.CompletionConfig
}

func NewChatClient(apiKey string, cfg infra.CompletionConfig) *ChatClient {
	return NewChatClientWithURL(apiKey, defaultBaseURL, cfg)
}

func NewChatClientWithURL(apiKey, baseURL string, cfg infra.CompletionConfig) *ChatClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 30
	}
	return &ChatClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		cfg:        cfg,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) Name() string {
	return "openai"
}

// Complete sends the question as a single user message and returns the
// trimmed reply.
func (c *ChatClient) Complete(ctx context.Context, question string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: question},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result chatResponse
	retryErr := infra.WithRetry(ctx, c.cfg.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &infra.RetryableError{Err: fmt.Errorf("sending request: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(respBody))
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

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
