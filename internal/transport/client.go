// Package transport is the HTTP client every API call goes through. It
// injects the bearer credential, tags requests for correlation and tracing,
// normalizes failures into apierr values and tells observers about 401s.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/tracing"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// authPathPrefix marks endpoints where a 401 means rejected credentials
// rather than an expired session.
const authPathPrefix = "/auth/"

// CredentialFunc returns the current bearer credential, or "" when there is
// none.
type CredentialFunc func() string

// UnauthorizedFunc observes a 401 response to req.
type UnauthorizedFunc func(ctx context.Context, req *http.Request)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Tracer     trace.Tracer
	Credential CredentialFunc
}

// Options are the per-call request parameters.
type Options struct {
	Params    url.Values
	Body      any
	Multipart *Multipart
	Headers   http.Header
}

// Response is a successful (2xx) response with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	tracer     trace.Tracer
	credential CredentialFunc

	mu          sync.RWMutex
	defaultAuth string
	observers   []UnauthorizedFunc
}

// New creates a Client. BaseURL must be an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	base, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "taskdeck"
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		userAgent:  userAgent,
		tracer:     tracer,
		credential: cfg.Credential,
	}, nil
}

// ParseBaseURL validates and normalizes an API base URL.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing host", raw)
	}
	return u, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetDefaultAuthHeader makes every later request carry "Bearer <token>".
func (c *Client) SetDefaultAuthHeader(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultAuth = "Bearer " + token
}

// ClearDefaultAuthHeader removes the default Authorization header.
func (c *Client) ClearDefaultAuthHeader() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultAuth = ""
}

// OnUnauthorized registers fn to run on every 401 from a non-auth endpoint.
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Client) authorization() string {
	c.mu.RLock()
	auth := c.defaultAuth
	c.mu.RUnlock()
	if auth != "" {
		return auth
	}
	if c.credential != nil {
		if token := c.credential(); token != "" {
			return "Bearer " + token
		}
	}
	return ""
}

// Get issues a GET with query params.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, Options{Params: params})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, Options{Body: body})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, Options{Body: body})
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, Options{})
}

// Request performs one API call. Non-2xx responses return an *apierr.Error
// classified by status; failures before a response are network errors.
func (c *Client) Request(ctx context.Context, method, path string, opts Options) (*Response, error) {
	op := method + " " + path
	requestID := uuid.NewString()

	ctx, span := tracing.StartRequestSpan(ctx, c.tracer, method, path, requestID)

	req, err := c.newRequest(ctx, method, path, opts)
	if err != nil {
		tracing.EndRequestSpan(span, 0, "", err)
		return nil, err
	}
	req.Header.Set(HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		netErr := apierr.Network(op, err)
		tracing.EndRequestSpan(span, 0, string(apierr.KindNetwork), netErr)
		log.Warn(log.CatTransport, "request failed", "op", op, "request_id", requestID, "error", err)
		return nil, netErr
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := apierr.Network(op, err)
		tracing.EndRequestSpan(span, resp.StatusCode, string(apierr.KindNetwork), netErr)
		return nil, netErr
	}

	log.Debug(log.CatTransport, "request completed",
		"op", op, "status", resp.StatusCode, "request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := apierr.FromResponse(op, resp.StatusCode, data, "")
		if resp.StatusCode == http.StatusUnauthorized && !strings.HasPrefix(path, authPathPrefix) {
			span.AddEvent(tracing.EventUnauthorized)
			c.notifyUnauthorized(ctx, req)
		}
		tracing.EndRequestSpan(span, resp.StatusCode, string(apiErr.Kind), apiErr)
		return nil, apiErr
	}

	tracing.EndRequestSpan(span, resp.StatusCode, "", nil)
	return &Response{Status: resp.StatusCode, Header: resp.Header, Data: data}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, opts Options) (*http.Request, error) {
	if opts.Body != nil && opts.Multipart != nil {
		return nil, errors.New("transport: Body and Multipart are mutually exclusive")
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(opts.Params) > 0 {
		u.RawQuery = opts.Params.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case opts.Multipart != nil:
		buf, ct, err := opts.Multipart.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case opts.Body != nil:
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth := c.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for k, vs := range opts.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func (c *Client) notifyUnauthorized(ctx context.Context, req *http.Request) {
	c.mu.RLock()
	observers := append([]UnauthorizedFunc(nil), c.observers...)
	c.mu.RUnlock()

	log.Warn(log.CatTransport, "unauthorized response", "op", req.Method+" "+req.URL.Path, "observers", len(observers))
	for _, fn := range observers {
		fn(ctx, req)
	}
}
