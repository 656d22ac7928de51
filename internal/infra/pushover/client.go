package pushover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.pushover.net/1"

// Client pushes operator notifications, such as the trial allowance running
// out. With no token or user key configured it does nothing.
type Client struct {
	token      string
	userKey    string
	title      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token, userKey, title string) *Client {
	return NewClientWithURL(token, userKey, title, defaultBaseURL)
}

func NewClientWithURL(token, userKey, title, baseURL string) *Client {
	if title == "" {
		title = "Voice Assistant"
	}
	return &Client{
		token:      token,
		userKey:    userKey,
		title:      title,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Enabled() bool {
	return c.token != "" && c.userKey != ""
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if !c.Enabled() {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", c.title)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/messages.json",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover error: %s", resp.Status)
	}

	return nil
}
