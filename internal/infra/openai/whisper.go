package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voice-assistant/internal/infra"
)

// WhisperClient transcribes recorded audio for the capture sources that
// only have raw audio (microphone, audio files).
type WhisperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	language   string
	retry      infra.RetryConfig
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, defaultBaseURL)
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	return &WhisperClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		language:   whisperLanguage(language),
		retry:      infra.DefaultRetryConfig(),
	}
}

// whisperLanguage reduces a BCP 47 tag such as "en-US" to the ISO 639-1
// code Whisper expects.
func whisperLanguage(tag string) string {
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var result transcriptionResponse

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "audio.wav")
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}

		if _, err = part.Write(audio); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}

		if err = writer.WriteField("model", "whisper-1"); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}

		if c.language != "" {
			if err = writer.WriteField("language", c.language); err != nil {
				return fmt.Errorf("writing language field: %w", err)
			}
		}

		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &infra.RetryableError{Err: fmt.Errorf("sending request: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("whisper API error %d: %s", resp.StatusCode, string(respBody))
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

	return strings.TrimSpace(result.Text), nil
}
