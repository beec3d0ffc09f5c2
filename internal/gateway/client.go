// Package gateway is the typed client for the upstream API gateway. All
// gateway responses are enveloped as {body, message, error?}; non-2xx
// responses surface as *APIError so callers can branch on status.
package gateway

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

	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/infrastructure/logger"
)

// FallbackErrorMessage is shown when the gateway supplies no message or
// the response body cannot be parsed.
const FallbackErrorMessage = "Request failed. Please try again."

// ErrGatewayUnreachable marks transport-level failures: the gateway
// could not be reached at all. Distinct from HTTP error responses.
var ErrGatewayUnreachable = errors.New("gateway unreachable")

// APIError is an HTTP error response from the gateway. Message carries
// the server-supplied message when present, else the fallback string.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status of an APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsConflict reports whether err is a 409 from the gateway. On purchase
// order mutations this is the supplier-mismatch conflict.
func IsConflict(err error) bool {
	return StatusOf(err) == http.StatusConflict
}

// IsUnavailable reports whether err is a transport failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnreachable)
}

// envelope is the gateway's response wrapper.
type envelope struct {
	Body    json.RawMessage `json:"body"`
	Message string          `json:"message"`
	Error   string          `json:"error,omitempty"`
}

// Client issues requests against the upstream API gateway. It performs
// no retries; retry policy belongs to callers.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New creates a gateway client for the given base URL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured gateway base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// log prefers the request-scoped logger from ctx so gateway failures
// carry the request id of the portal call that triggered them.
func (c *Client) log(ctx context.Context) *zap.Logger {
	if reqLogger := logger.FromContext(ctx); reqLogger != nil {
		return reqLogger
	}
	return c.logger
}

// do issues one request and decodes the enveloped response body into
// out. token, in and out may be empty/nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log(ctx).Warn("gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s: %w", FallbackErrorMessage, err)
	}
	payload := env.Body
	if len(payload) == 0 {
		// Some endpoints respond without the envelope.
		payload = data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: %w", FallbackErrorMessage, err)
	}
	return nil
}

// newAPIError builds an APIError from an error response, tolerating a
// body that is not valid JSON.
func newAPIError(status int, body []byte) *APIError {
	message := FallbackErrorMessage
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		message = env.Message
	}
	return &APIError{Status: status, Message: message, Body: body}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path, token string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, token, in, out)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path, token string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, token, in, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path, token string) error {
	return c.do(ctx, http.MethodDelete, path, token, nil, nil)
}
