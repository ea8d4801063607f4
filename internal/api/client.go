// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/counsel-tui/internal/auth"
	"github.com/jeranaias/counsel-tui/internal/model"
)

// Configuration constants.
const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultMessageLimit is the page size used when a caller passes limit <= 0.
	DefaultMessageLimit = 50

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	userAgent = "counsel/0.3.0"
)

// newTransport returns a pooled transport shared by a client's requests.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// Client talks to the counsel backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	tokens     auth.TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	provider   string
	logger     *zap.Logger
}

// NewClient creates a client for baseURL. A nil token source sends
// unauthenticated requests.
func NewClient(baseURL string, tokens auth.TokenSource) *Client {
	if tokens == nil {
		tokens = auth.Anonymous()
	}
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: newTransport(),
		},
		logger: zap.NewNop(),
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger.Named("api")
	}
	return c
}

// WithRateLimit paces outgoing requests to rps per second. This delays
// requests; it never retries them. rps <= 0 removes the limit.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithProvider asks the backend to route chat requests to a named LLM provider.
func (c *Client) WithProvider(provider string) *Client {
	c.provider = strings.TrimSpace(provider)
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SendMessage posts a user message. An empty sessionID asks the backend to
// create a new session; the reply names the session either way.
func (c *Client) SendMessage(ctx context.Context, content, sessionID string) (*ChatResponse, error) {
	req := ChatRequest{Message: content, SessionID: sessionID, LLMProvider: c.provider}
	var resp ChatResponse
	if err := c.do(ctx, call{
		op: "send message", fallback: msgSend,
		method: http.MethodPost, path: "/api/chat",
		body: req, out: &resp, authenticated: true,
	}); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgSend,
			Op: "send message", Err: errors.New("response without session_id")}
	}
	return &resp, nil
}

// ListSessions returns the caller's sessions, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var wire []wireSession
	if err := c.do(ctx, call{
		op: "list sessions", fallback: msgListSessions,
		method: http.MethodGet, path: "/api/sessions",
		out: &wire, authenticated: true,
	}); err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(wire))
	for _, w := range wire {
		s, err := w.toModel()
		if err != nil {
			return nil, protocolError("list sessions", msgListSessions, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// GetSession returns one session. An unknown id yields ErrNotFound.
func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var wire wireSession
	if err := c.do(ctx, call{
		op: "get session", fallback: msgGetSession,
		method: http.MethodGet, path: "/api/sessions/" + url.PathEscape(id),
		out: &wire, authenticated: true,
	}); err != nil {
		return nil, err
	}
	s, err := wire.toModel()
	if err != nil {
		return nil, protocolError("get session", msgGetSession, err)
	}
	return &s, nil
}

// ListMessages returns up to limit messages of a session, oldest first.
// limit <= 0 uses DefaultMessageLimit.
func (c *Client) ListMessages(ctx context.Context, id string, limit int) ([]model.Message, error) {
	return c.ListMessagesPage(ctx, id, limit, 0)
}

// ListMessagesPage is ListMessages starting at offset.
func (c *Client) ListMessagesPage(ctx context.Context, id string, limit, offset int) ([]model.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var wire []wireMessage
	if err := c.do(ctx, call{
		op: "list messages", fallback: msgListMessages,
		method: http.MethodGet, path: "/api/sessions/" + url.PathEscape(id) + "/messages",
		query: q, out: &wire, authenticated: true,
	}); err != nil {
		return nil, err
	}
	msgs := make([]model.Message, 0, len(wire))
	for _, w := range wire {
		m, err := w.toModel()
		if err != nil {
			return nil, protocolError("list messages", msgListMessages, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// RenameSession sets a session's title and returns the server's view of it.
func (c *Client) RenameSession(ctx context.Context, id, title string) (*model.Session, error) {
	var wire wireSession
	if err := c.do(ctx, call{
		op: "rename session", fallback: msgUpdateSession,
		method: http.MethodPut, path: "/api/sessions/" + url.PathEscape(id),
		body: renameRequest{Title: title}, out: &wire, authenticated: true,
	}); err != nil {
		return nil, err
	}
	if wire.ID == "" {
		wire.ID = id
	}
	s, err := wire.toModel()
	if err != nil {
		return nil, protocolError("rename session", msgUpdateSession, err)
	}
	return &s, nil
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, call{
		op: "delete session", fallback: msgDeleteSession,
		method: http.MethodDelete, path: "/api/sessions/" + url.PathEscape(id),
		authenticated: true,
	})
}

// HealthCheck queries the unauthenticated health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, call{
		op: "health check", fallback: msgHealth,
		method: http.MethodGet, path: "/health",
		out: &h,
	}); err != nil {
		return nil, err
	}
	return &h, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// call describes a single request.
type call struct {
	op            string
	fallback      string
	method        string
	path          string
	query         url.Values
	body          any
	out           any
	authenticated bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return networkError(ctx, cl, err)
		}
	}

	reqURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		reqURL += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if cl.authenticated {
		// The token is fetched per call so refreshed credentials apply immediately.
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &Error{Kind: ErrAuth, Message: err.Error(), Op: cl.op, Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return networkError(ctx, cl, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	data, err := readResponse(resp)
	if err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return handleErrorResponse(cl.op, cl.fallback, resp.StatusCode, nil)
		}
		if errors.Is(err, errResponseTooLarge) {
			return &Error{Kind: ErrProtocol, Status: resp.StatusCode, Message: cl.fallback, Op: cl.op, Err: err}
		}
		return networkError(ctx, cl, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(cl.op, cl.fallback, resp.StatusCode, data)
	}

	if cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return &Error{Kind: ErrProtocol, Status: resp.StatusCode, Message: cl.fallback, Op: cl.op, Err: err}
	}
	return nil
}

var errResponseTooLarge = fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, errResponseTooLarge
	}
	return body, nil
}

func networkError(ctx context.Context, cl call, err error) *Error {
	msg := "Unable to reach the server"
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg = "Request cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "Request timed out"
		}
	} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
		msg = "Request timed out"
	}
	return &Error{Kind: ErrNetwork, Message: msg, Op: cl.op, Err: err}
}

func protocolError(op, fallback string, err error) *Error {
	return &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: fallback, Op: op, Err: err}
}
