// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for communicating with the
// LankaGuide backend API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lankaguide/lankaguide-tui/internal/session"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota

	// ErrTypeNetwork is a transport-level failure, distinct from a server
	// error response. Surfaced as a generic connectivity message.
	ErrTypeNetwork

	// ErrTypeTimeout is a context deadline or cancellation.
	ErrTypeTimeout

	// ErrTypeUnauthorized is a 401; the session has been cleared by the
	// time the caller sees this error.
	ErrTypeUnauthorized

	// ErrTypeForbidden is a 403 (non-admin hitting an admin endpoint).
	ErrTypeForbidden

	// ErrTypeNotFound is a 404.
	ErrTypeNotFound

	// ErrTypeRejected is any other backend-reported failure; Message
	// carries the backend's error text verbatim.
	ErrTypeRejected

	// ErrTypeInvalidResponse means the body could not be decoded.
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnauthorized       = &ClientError{Type: ErrTypeUnauthorized, Message: "session expired or invalid"}
	ErrForbidden          = &ClientError{Type: ErrTypeForbidden, Message: "not permitted"}
	ErrNotFound           = &ClientError{Type: ErrTypeNotFound, Message: "not found"}
	ErrNetworkUnavailable = &ClientError{Type: ErrTypeNetwork, Message: "cannot reach the LankaGuide server"}
	ErrTimeout            = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsUnauthorized checks if an error is an authorization failure.
func IsUnauthorized(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnauthorized
	}
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound checks if an error is a 404.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsNetwork checks if an error is a transport-level failure.
func IsNetwork(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNetwork
	}
	return errors.Is(err, ErrNetworkUnavailable)
}

// UserMessage extracts the text to show the user for an error. Backend
// rejection messages pass through verbatim; transport failures get the
// sentinel wording rather than raw dial errors.
func UserMessage(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// MaxResponseSize caps response bodies to prevent memory exhaustion from a
// misbehaving server.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend API base URL, e.g. "https://api.lankaguide.lk/api".
	BaseURL string

	// Timeout for regular requests (default: 30s).
	Timeout time.Duration

	// UploadTimeout for multipart uploads, which may carry large files
	// (default: 5m).
	UploadTimeout time.Duration

	// MaxRetries for transient failures on idempotent requests (default: 3).
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff (default: 500ms).
	RetryDelay time.Duration

	// UserAgent sent on every request.
	UserAgent string
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig(baseURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL:       baseURL,
		Timeout:       30 * time.Second,
		UploadTimeout: 5 * time.Minute,
		MaxRetries:    3,
		RetryDelay:    500 * time.Millisecond,
		UserAgent:     "lankaguide-tui/1.0",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the LankaGuide backend.
//
// Every call attaches the bearer token from the session store. A 401 from
// any endpoint clears the session and notifies the unauthorized hook; the
// hook fires only for the call that actually cleared the token, so two
// in-flight requests failing together produce one session reset.
//
// The Client is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	uploadClient *http.Client
	sessions     *session.Store

	// onUnauthorized is invoked after a 401 clears a live session.
	onUnauthorized func()
}

// NewClient creates a backend client bound to a session store.
func NewClient(config *ClientConfig, sessions *session.Store) *Client {
	if config == nil {
		config = DefaultClientConfig("")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UploadTimeout == 0 {
		config.UploadTimeout = 5 * time.Minute
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.UserAgent == "" {
		config.UserAgent = "lankaguide-tui/1.0"
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		uploadClient: &http.Client{Timeout: config.UploadTimeout},
		sessions:     sessions,
	}
}

// SetUnauthorizedHook registers the process-wide 401 handler. The app model
// uses it to navigate back to the login view.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onUnauthorized = fn
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// errorBody is the backend's error envelope: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

// newRequest builds a request with auth and standard headers attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	// Correlation id for matching client reports against server logs.
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes a request and maps transport and status failures onto the
// client error taxonomy. The returned response has a live body the caller
// must close; it is non-nil only when the status was 2xx.
func (c *Client) do(httpClient *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, &ClientError{Type: ErrTypeNetwork, Message: ErrNetworkUnavailable.Message, Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := readResponse(resp)
	resp.Body.Close()
	return nil, c.statusError(resp.StatusCode, body)
}

// statusError converts a non-2xx response into a typed error. 401 clears
// the session as a side effect.
func (c *Client) statusError(status int, body []byte) error {
	message := ""
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		message = envelope.Error
	}

	switch status {
	case http.StatusUnauthorized:
		c.handleUnauthorized()
		return ErrUnauthorized
	case http.StatusForbidden:
		if message != "" {
			return &ClientError{Type: ErrTypeForbidden, Message: message}
		}
		return ErrForbidden
	case http.StatusNotFound:
		if message != "" {
			return &ClientError{Type: ErrTypeNotFound, Message: message}
		}
		return ErrNotFound
	default:
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", status)
		}
		// Backend error text is surfaced verbatim to the user.
		return &ClientError{Type: ErrTypeRejected, Message: message}
	}
}

// handleUnauthorized clears the session and fires the hook once. If a
// concurrent request already cleared the token, this is a no-op.
func (c *Client) handleUnauthorized() {
	if c.sessions.Clear() && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// getJSON performs a GET with retry for transient failures and decodes a
// JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ErrTimeout
			case <-time.After(c.config.RetryDelay * time.Duration(1<<uint(attempt-1))):
			}
		}

		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		resp, err := c.do(c.httpClient, req)
		if err != nil {
			// GETs are idempotent: retry network failures and 5xx, but
			// never auth or client errors.
			if c.isRetryable(err) {
				lastErr = err
				continue
			}
			return err
		}
		return decodeJSON(resp, out)
	}
	return lastErr
}

// postJSON performs a POST with a JSON body and decodes a JSON response
// into out (out may be nil). POSTs are not retried.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	if out == nil {
		drainAndClose(resp.Body)
		return nil
	}
	return decodeJSON(resp, out)
}

// delete performs a DELETE and discards any body.
func (c *Client) delete(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

// isRetryable reports whether an error is worth retrying on an idempotent
// request.
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return false
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrTypeNetwork:
			return true
		case ErrTypeRejected:
			// 5xx responses land here without a backend message.
			return strings.Contains(clientErr.Message, "status 5")
		}
	}
	return false
}

// decodeJSON decodes a successful response body into out and closes it.
func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// readResponse reads a response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to read response", Cause: err}
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: fmt.Sprintf("response exceeded %d bytes", MaxResponseSize)}
	}
	return body, nil
}

// drainAndClose drains a response body so the connection can be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
