// Package client is a minimal consumer of the stateful session protocol:
// it creates a session with configuration encoded in the connection URL,
// attaches to the server's event stream, and terminates the session. Server
// rejections arrive as ProblemDetails bodies and surface as *problem.Details
// errors.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mcpkit/stateful-go/connecturl"
	"github.com/mcpkit/stateful-go/problem"
)

const sessionIDHeader = "Mcp-Session-Id"

// Client talks to one session endpoint (e.g. "https://host/mcp").
type Client struct {
	endpoint string
	hc       *http.Client
	apiKey   string
	profile  string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The default client has
// no timeout, which the long-lived event stream requires.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithAPIKey attaches an api_key query parameter to every session creation.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithProfile attaches a profile query parameter to every session creation.
func WithProfile(profile string) Option {
	return func(c *Client) { c.profile = profile }
}

// New creates a Client for the given session endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{endpoint: endpoint, hc: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession creates a session carrying the given configuration and
// returns its identifier.
func (c *Client) CreateSession(ctx context.Context, config map[string]any) (string, error) {
	urlOpts := []connecturl.Option{}
	if config != nil {
		urlOpts = append(urlOpts, connecturl.WithConfig(config))
	}
	if c.apiKey != "" {
		urlOpts = append(urlOpts, connecturl.WithAPIKey(c.apiKey))
	}
	if c.profile != "" {
		urlOpts = append(urlOpts, connecturl.WithProfile(c.profile))
	}
	u, err := connecturl.Build(c.endpoint, urlOpts...)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusCreated {
		return "", responseError(res)
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if body.SessionID == "" {
		return "", fmt.Errorf("create response missing sessionId")
	}
	return body.SessionID, nil
}

// Events attaches to the session's event stream and invokes fn for every
// event until the stream ends, fn returns an error, or ctx is canceled. A
// canceled context returns ctx.Err(); the session stays intact server-side.
func (c *Client) Events(ctx context.Context, sessionID string, fn func(event, data string) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(sessionIDHeader, sessionID)

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("attach event stream: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return responseError(res)
	}

	var event, data string
	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if event == "" && data == "" {
				continue
			}
			if err := fn(event, data); err != nil {
				return err
			}
			event, data = "", ""
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream read: %w", err)
	}
	return nil
}

// Terminate ends the session. Terminating an already-terminated or evicted
// session returns a *problem.Details with a 404 status.
func (c *Client) Terminate(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set(sessionIDHeader, sessionID)

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusNoContent {
		return responseError(res)
	}
	return nil
}

// responseError decodes a ProblemDetails body into an error, falling back to
// a bare status error when the body is not a problem document.
func responseError(res *http.Response) error {
	var d problem.Details
	if err := json.NewDecoder(res.Body).Decode(&d); err != nil || d.Title == "" {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	if d.Status == 0 {
		d.Status = res.StatusCode
	}
	return &d
}
