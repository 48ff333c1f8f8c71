// Package gateway is the single point through which every backend call
// passes. It attaches the session cookie and the anti-forgery token,
// and turns transport, HTTP and application failures into one error type.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/terzeron/feedmaker-console/internal/csrf"
)

const (
	// RequestIDHeader correlates console logs with backend logs
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
	maxBodySize    = 10 << 20
)

// TokenResolver supplies the anti-forgery token for mutating calls
type TokenResolver interface {
	Resolve(ctx context.Context) (string, bool)
}

// Client represents a call site of the FeedMaker API.
// Loading and Err describe the calls made through this instance only;
// use Fork to give another consumer its own state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenResolver
	validate   *validator.Validate
	logger     zerolog.Logger

	mu      sync.Mutex
	loading bool
	lastErr string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A client without a cookie
// jar gets one, since credentials are always included.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		hc := *httpClient
		if hc.Jar == nil {
			hc.Jar = newJar()
		}
		c.httpClient = &hc
	}
}

// WithTokenResolver sets where anti-forgery tokens come from
func WithTokenResolver(tokens TokenResolver) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a new API client. Every endpoint is prefixed with baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     newJar(),
		},
		validate: validator.New(),
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newJar() http.CookieJar {
	// cookiejar.New only fails on a bad PublicSuffixList
	jar, _ := cookiejar.New(nil)
	return jar
}

// Fork returns a client sharing transport, cookies and token source
// but with its own loading and error state
func (c *Client) Fork() *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		tokens:     c.tokens,
		validate:   c.validate,
		logger:     c.logger,
	}
}

// BaseURL returns the API base every endpoint is resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar returns the cookie jar attached to every request
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Loading reports whether a call is in flight on this client
func (c *Client) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the message of the last failed call, or "" after a success
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) begin() {
	c.mu.Lock()
	c.loading = true
	c.lastErr = ""
	c.mu.Unlock()
}

func (c *Client) end() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// Call issues a request and returns the response body unchanged on success
func (c *Client) Call(ctx context.Context, method, endpoint string, opts ...CallOption) (json.RawMessage, error) {
	c.begin()
	defer c.end()

	req := Request{
		Method:              method,
		Endpoint:            endpoint,
		CredentialsIncluded: true,
	}
	for _, opt := range opts {
		opt(&req)
	}

	body, err := c.do(ctx, req)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	return body, nil
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodGet, endpoint, WithQuery(query))
}

// Post issues a POST request; a nil body is sent as an empty object
func (c *Client) Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodPost, endpoint, WithBody(orEmpty(body)))
}

// Put issues a PUT request; a nil body is sent as an empty object
func (c *Client) Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodPut, endpoint, WithBody(orEmpty(body)))
}

// Del issues a DELETE request
func (c *Client) Del(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodDelete, endpoint)
}

func orEmpty(body any) any {
	if body == nil {
		return struct{}{}
	}
	return body
}

func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, c.transportError(req, fmt.Errorf("invalid request: %w", err))
	}

	if req.Mutating() && c.tokens != nil {
		if token, ok := c.tokens.Resolve(ctx); ok {
			req.AntiForgeryToken = token
		}
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, c.transportError(req, err)
	}

	requestID := httpReq.Header.Get(RequestIDHeader)
	logger := c.logger.With().
		Str("method", req.Method).
		Str("endpoint", req.Endpoint).
		Str("request_id", requestID).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug().Err(err).Msg("Request failed before a response arrived")
		return nil, c.transportError(req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, c.transportError(req, fmt.Errorf("failed to read response: %w", err))
	}
	if len(body) > maxBodySize {
		return nil, c.transportError(req, ErrResponseTooLarge)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Bool("csrf", req.AntiForgeryToken != "").
		Msg("API call completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:     KindServer,
			Method:   req.Method,
			Endpoint: req.Endpoint,
			Status:   resp.StatusCode,
			Message:  serverMessage(resp.StatusCode, body),
		}
	}

	result := Decide(body)
	if result.Outcome == OutcomeFailure {
		return nil, &Error{
			Kind:     KindApplication,
			Method:   req.Method,
			Endpoint: req.Endpoint,
			Status:   resp.StatusCode,
			Message:  result.Message,
		}
	}

	return result.Body, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	target := c.baseURL + req.Endpoint
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(RequestIDHeader, ulid.Make().String())
	if req.AntiForgeryToken != "" {
		httpReq.Header.Set(csrf.HeaderName, req.AntiForgeryToken)
	} else {
		httpReq.Header.Del(csrf.HeaderName)
	}

	return httpReq, nil
}

func (c *Client) transportError(req Request, err error) *Error {
	return &Error{
		Kind:     KindTransport,
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Message:  err.Error(),
		Err:      err,
	}
}
