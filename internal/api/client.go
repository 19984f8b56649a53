// Package api is the REST client for the nest backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/nestmate/internal/auth"
)

const maxErrorBody = 64 << 10

// Client issues requests against a single backend base URL. It never retries.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	newKey     func() string
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "nestmate",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		newKey:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type idempotencyKey struct{}

// WithIdempotencyKey makes mutating requests issued with ctx carry key
// instead of a fresh one. Retrying a command with the same ctx lets the
// backend replay the first outcome rather than apply it twice.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do issues method against path. A non-nil in is sent as JSON; on 2xx the
// response is decoded into out unless out is nil or the status is 204.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, 0, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, actingUser int64, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		key, _ := ctx.Value(idempotencyKey{}).(string)
		if key == "" {
			key = c.newKey()
		}
		req.Header.Set("Idempotency-Key", key)
	}
	if actingUser != 0 {
		req.Header.Set(auth.HeaderUserID, strconv.FormatInt(actingUser, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newStatusError(method, path, resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Method: method, Path: path, Err: err}
	}
	return nil
}

func nestPath(nestID int64, parts ...any) string {
	var b strings.Builder
	b.WriteString("/nests/")
	b.WriteString(strconv.FormatInt(nestID, 10))
	for _, p := range parts {
		b.WriteByte('/')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

func listOrEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
