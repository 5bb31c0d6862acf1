package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/buildinfo"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/session"
)

// DefaultTimeout bounds every call to the entries service.
const DefaultTimeout = 10 * time.Second

// ErrUnauthorized is wrapped by every *Error with status 401.
var ErrUnauthorized = errors.New("session expired, please sign in again")

// Error is a failed call the entries service answered.
type Error struct {
	Status    int
	Message   string // the envelope message, may be empty
	RequestID string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("entries service: HTTP %d", e.Status)
	}
	return fmt.Sprintf("entries service: %s (HTTP %d)", e.Message, e.Status)
}

// UserMessage is the server's own message for the operator.
func (e *Error) UserMessage() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// envelope wraps every JSON response
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client talks to the entries and options endpoints with the session's bearer token.
// Calls are never retried.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	log     *slog.Logger
	metrics *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = NewHTTPClient(d) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records every call.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewHTTPClient creates the HTTP client used for the entries service
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:     dialer.DialContext,
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// NewClient creates a client for the service rooted at baseURL (e.g. https://host/api).
func NewClient(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(DefaultTimeout),
		session: sess,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request. 401 clears the session before returning.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (*http.Response, string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, "", fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(op, OutcomeNetwork, time.Since(start))
		c.log.Error("request failed", "op", op, "request_id", requestID, "err", err)
		return nil, requestID, fmt.Errorf("%s: %w", op, err)
	}

	outcome := OutcomeOK
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		outcome = OutcomeUnauthorized
	case resp.StatusCode >= 400:
		outcome = OutcomeRejected
	}
	c.metrics.observe(op, outcome, time.Since(start))
	c.log.Debug("request done", "op", op, "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized {
		msg := readEnvelopeMessage(resp)
		resp.Body.Close()
		if c.session != nil {
			if err := c.session.Clear(); err != nil {
				c.log.Warn("failed to clear session", "err", err)
			}
		}
		c.log.Warn("session rejected by entries service", "op", op, "request_id", requestID)
		if msg == "" {
			msg = "Session expired, please sign in again"
		}
		return nil, requestID, &Error{Status: resp.StatusCode, Message: msg, RequestID: requestID}
	}
	return resp, requestID, nil
}

// call performs a JSON request and decodes the envelope's data into out (if non-nil).
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	resp, requestID, err := c.do(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &Error{Status: resp.StatusCode, RequestID: requestID}
		}
		return fmt.Errorf("%s: decode envelope: %w", op, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return &Error{Status: resp.StatusCode, Message: env.Message, RequestID: requestID}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

// download fetches a binary body. JSON answers are treated as envelope failures.
func (c *Client) download(ctx context.Context, op, path string) ([]byte, error) {
	resp, requestID, err := c.do(ctx, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if resp.StatusCode >= 400 || isJSON {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return nil, &Error{Status: resp.StatusCode, Message: env.Message, RequestID: requestID}
	}
	return raw, nil
}

func readEnvelopeMessage(resp *http.Response) string {
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env); err != nil {
		return ""
	}
	return env.Message
}
