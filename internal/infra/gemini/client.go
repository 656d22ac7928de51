package gemini

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

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	cfg        infra.CompletionConfig
}

func NewClient(apiKey string, cfg infra.CompletionConfig) *Client {
	return NewClientWithURL(apiKey, "https://generativelanguage.googleapis.com/v1beta", cfg)
}

func NewClientWithURL(apiKey, baseURL string, cfg infra.CompletionConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 30
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		cfg:        cfg,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *Client) Name() string {
	return "gemini"
}

func (c *Client) Complete(ctx context.Context, question string) (string, error) {
	reqBody := request{
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: question}},
			},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens: c.cfg.MaxTokens,
			Temperature:     c.cfg.Temperature,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, c.cfg.Retry, func() error {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.cfg.Model, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &infra.RetryableError{Err: fmt.Errorf("sending request: %w", err)}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(respBody))
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return &infra.RetryableError{Err: err}
			}
			return err
		}

		if err = json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}
