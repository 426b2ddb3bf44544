// Package syncclient is the HTTP client for the todo sync server. It
// implements sync.Transport against POST /todos/sync and the health
// probe used by the connectivity monitor.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marcus/todosync/internal/sync"
)

// Client talks to a todosync server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a sync client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// syncRequest is the body for POST /todos/sync.
type syncRequest struct {
	Todos []sync.ChangeDescriptor `json:"todos"`
}

// apiError is the standard error body from the server.
type apiError struct {
	Message string `json:"message"`
}

// Push sends a batch of local changes and returns the authoritative
// result. A non-2xx status surfaces the server-reported message as a
// *sync.RemoteError; a response body that is not the expected batch
// shape surfaces sync.ErrProtocol.
func (c *Client) Push(ctx context.Context, batch []sync.ChangeDescriptor) (*sync.PushResult, error) {
	body, err := json.Marshal(syncRequest{Todos: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/todos/sync", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, &sync.RemoteError{Status: resp.StatusCode, Message: apiErr.Message}
		}
		return nil, &sync.RemoteError{Status: resp.StatusCode}
	}

	var result sync.PushResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", sync.ErrProtocol, err)
	}
	if result.Todos == nil {
		return nil, fmt.Errorf("%w: response missing todos batch", sync.ErrProtocol)
	}
	return &result, nil
}

// Health hits GET /healthz to verify server reachability.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: HTTP %d", resp.StatusCode)
	}
	return nil
}
