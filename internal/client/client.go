// Package client is a typed HTTP client for the ToolMe REST backend.
//
// Every call takes a context; cancelling it aborts the underlying request.
// Server payloads use snake_case keys and are mapped to models types at this
// boundary, see mapping.go.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the local development backend.
const DefaultBaseURL = "http://localhost:8030"

// AuthCookieName is the HTTP-only cookie the backend issues on login.
const AuthCookieName = "toolme_access_token"

const maxErrorBody = 64 << 10

// Observer is notified after every backend call. status is 0 when the
// request failed before a response arrived.
type Observer func(resource, operation string, status int, elapsed time.Duration)

// Client talks to the backend on behalf of one credential holder.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cred       *Credential
	observer   Observer
	userAgent  string

	Auth        *AuthService
	Projects    *ProjectService
	Submissions *SubmissionService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. It is shared, not copied.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout on a private HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithCredential binds the client to an existing credential.
func WithCredential(cred *Credential) Option {
	return func(c *Client) {
		if cred != nil {
			c.cred = cred
		}
	}
}

// WithObserver installs a call observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithUserAgent sets the User-Agent header sent to the backend.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cred:       &Credential{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Auth = &AuthService{c: c}
	c.Projects = &ProjectService{c: c}
	c.Submissions = &SubmissionService{c: c}
	return c
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Credential returns the credential the client sends and updates.
func (c *Client) Credential() *Credential {
	return c.cred
}

// call describes one backend request.
type call struct {
	resource  string
	operation string
	method    string
	path      string
	query     map[string]string
	body      any
}

// do sends the request and decodes a 2xx JSON body into out. Non-2xx
// responses become *Error.
func (c *Client) do(ctx context.Context, rc call, out any) error {
	var body io.Reader
	if rc.body != nil {
		data, err := json.Marshal(rc.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", rc.operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", rc.operation, err)
	}
	if len(rc.query) > 0 {
		q := req.URL.Query()
		for k, v := range rc.query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.cred.Token(); token != "" {
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(rc, 0, start)
		return fmt.Errorf("%s: %w", rc.operation, err)
	}
	defer resp.Body.Close()
	c.observe(rc, resp.StatusCode, start)

	c.captureCredential(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", rc.operation, err)
	}
	return nil
}

func (c *Client) observe(rc call, status int, start time.Time) {
	if c.observer != nil {
		c.observer(rc.resource, rc.operation, status, time.Since(start))
	}
}

// captureCredential mirrors the backend auth cookie into the credential.
func (c *Client) captureCredential(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != AuthCookieName {
			continue
		}
		if ck.Value == "" || ck.MaxAge < 0 {
			c.cred.Clear()
		} else {
			c.cred.Set(ck.Value)
		}
	}
}
