package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const DefaultModel = "mrp.production"

// Client calls the ERP's JSON-RPC dataset endpoint with a session cookie.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	sessionID  string
	httpClient *http.Client
	nextID     int64
}

func NewClient(baseURL, sessionID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Reconfigure swaps connection settings live.
func (c *Client) Reconfigure(baseURL, sessionID string, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.sessionID = sessionID
	c.httpClient = &http.Client{Timeout: timeout}
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// call posts a JSON-RPC "call" for model.method and decodes result into out.
func (c *Client) call(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	c.mu.Lock()
	baseURL, sessionID, hc := c.baseURL, c.sessionID, c.httpClient
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	if baseURL == "" {
		return &ReadError{Message: "erp base url not configured"}
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		ID:      id,
		Params: rpcParams{
			Model:  model,
			Method: method,
			Args:   args,
			Kwargs: kwargs,
		},
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/web/dataset/call_kw/%s/%s", baseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &ReadError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &ReadError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ReadError{StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ReadError{StatusCode: resp.StatusCode, Message: truncate(string(data), 200)}
	}

	var rpc rpcResponse
	if err := json.Unmarshal(data, &rpc); err != nil {
		return &ReadError{StatusCode: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	if err := checkResponse(&rpc); err != nil {
		return err
	}
	if out == nil || len(rpc.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpc.Result, out); err != nil {
		return &ReadError{StatusCode: resp.StatusCode, Message: "failed to decode result", Err: err}
	}
	return nil
}

func checkResponse(r *rpcResponse) error {
	if r.Error == nil {
		return nil
	}
	msg := r.Error.Message
	if r.Error.Data.Message != "" {
		msg = r.Error.Data.Message
	}
	if msg == "" {
		msg = "erp api error"
	}
	return &ReadError{Code: r.Error.Code, Message: msg}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
