// Package api is the HTTP client for the coderev API server running inside a
// codespace.
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const healthRequestTimeout = 5 * time.Second

// Health is the /health response.
type Health struct {
	Status        string `json:"status"`
	RepoDir       string `json:"repo_dir"`
	Branch        string `json:"branch"`
	Commit        string `json:"commit"`
	ClaudeVersion string `json:"claude_version"`
}

// AskRequest is the /ask and /ask/stream request body.
type AskRequest struct {
	Question  string   `json:"question"`
	Files     []string `json:"files,omitempty"`
	DiffRange string   `json:"diff_range,omitempty"`
	Model     string   `json:"model,omitempty"`
	MaxTurns  int      `json:"max_turns"`
	SessionID string   `json:"session_id,omitempty"`
}

// Usage is the server's accounting for one answer.
type Usage struct {
	CostUSD      float64 `json:"cost_usd,omitempty"`
	NumTurns     int     `json:"num_turns,omitempty"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
}

// AskResponse is the /ask response body.
type AskResponse struct {
	Answer          string  `json:"answer"`
	Usage           Usage   `json:"usage"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// StatusError is a non-2xx response from the API server.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("coderev server: status %d", e.StatusCode)
	}
	return fmt.Sprintf("coderev server: status %d: %s", e.StatusCode, e.Detail)
}

// Client talks to one coderev server.
type Client struct {
	baseURL   string
	authToken string
	client    *http.Client

	// HealthTimeout and HealthPollInterval bound WaitUntilReady.
	HealthTimeout      time.Duration
	HealthPollInterval time.Duration
}

// NewClient creates a Client. askTimeout bounds /ask and /ask/stream requests.
func NewClient(baseURL, authToken string, askTimeout time.Duration) *Client {
	return &Client{
		baseURL:            strings.TrimRight(baseURL, "/"),
		authToken:          authToken,
		client:             &http.Client{Timeout: askTimeout},
		HealthTimeout:      2 * time.Minute,
		HealthPollInterval: 2 * time.Second,
	}
}

// WithToken returns a copy of the client using a different auth token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.authToken = token
	return &clone
}

// WaitUntilReady polls /health until the server answers.
func (c *Client) WaitUntilReady(ctx context.Context) (*Health, error) {
	deadline := time.Now().Add(c.HealthTimeout)
	var lastErr error
	for {
		health, err := c.health(ctx)
		if err == nil {
			return health, nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("server not ready within %v: %w", c.HealthTimeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.HealthPollInterval):
		}
	}
}

func (c *Client) health(ctx context.Context) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, healthRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

// Ask sends the question and waits for the full answer.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	resp, err := c.post(ctx, "/ask", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var out AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ask response: %w", err)
	}
	return &out, nil
}

// AskStream sends the question and invokes onData for every SSE data payload
// until the server sends the end-of-stream marker.
func (c *Client) AskStream(ctx context.Context, req AskRequest, onData func(data string) error) error {
	resp, err := c.post(ctx, "/ask/stream", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}
		if err := onData(data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	// Stream ended without the marker; treat a clean EOF as done.
	return nil
}

// SetCredentials pushes Claude OAuth credentials to the server.
func (c *Client) SetCredentials(ctx context.Context, credentials map[string]any) error {
	resp, err := c.post(ctx, "/credentials", credentials)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	var body struct {
		Detail string `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &body)
	return &StatusError{StatusCode: resp.StatusCode, Detail: body.Detail}
}
