// Package serverapi is the HTTP client for the service/user data server.
// Calls retry with bounded exponential backoff up to a fixed attempt ceiling.
package serverapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

// Config is bound from the environment with the SERVER_API prefix.
type Config struct {
	Host          string        `envconfig:"HOST" split_words:"true" default:"http://localhost:8000"`
	APIPrefix     string        `envconfig:"API_PREFIX" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	RetryAttempts int           `envconfig:"RETRY_ATTEMPTS" split_words:"true" default:"3"`
}

// Service is the wire form of one capability the server reports for a user.
type Service struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Client talks to the server with retries. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
}

func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, errors.New("server host is required")
	}
	if _, err := url.ParseRequestURI(host); err != nil {
		return nil, fmt.Errorf("invalid server host: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	return &Client{
		baseURL:    host + strings.TrimSpace(cfg.APIPrefix),
		httpClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// UserServices fetches the services configured on the user's agent.
func (c *Client) UserServices(ctx context.Context, userID int64) ([]Service, error) {
	raw, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/services/user/%d/agent/services", userID), nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Services []Service `json:"services"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode services payload: %w", err)
	}
	return data.Services, nil
}

// SendMessage relays a chat message to another user. The caller treats
// failures as log-only.
func (c *Client) SendMessage(ctx context.Context, receiverID int64, content string) error {
	payload := map[string]any{
		"receiver_id": receiverID,
		"content":     content,
	}
	_, err := c.request(ctx, http.MethodPost, "/chat/send", payload)
	return err
}

// Health probes the server's health endpoint once, without retries.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server health status=%d", resp.StatusCode)
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request payload: %w", err)
		}
	}

	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
		}

		raw, err := c.do(ctx, method, endpoint, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("server status=%d body=%s", resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("server reported status=%q", env.Status)
	}
	return env.Data, nil
}
