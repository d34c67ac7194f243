// Package repository fetches content from a JCR repository over the Sling
// default GET servlet.
//
// The Client exposes three accessors: GetJSON for node properties
// (<path>.json), GetText for templates and source files, and GetBinary for
// assets. Every request carries the configured basic-auth credential and is
// bounded by the client timeout. Failures are returned as errors and never
// retried; callers decide whether an artifact is optional.
package repository

import (
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

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nao1215/componentscan/internal/metrics"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// DefaultCacheSize is the number of JSON documents memoized per client.
const DefaultCacheSize = 512

// DefaultMaxBodySize is the largest response body a client accepts.
const DefaultMaxBodySize = 32 << 20

// Client accesses one repository host.
// A Client is safe for concurrent use. It memoizes successful GetJSON
// results, so it should live no longer than one crawl run.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	cache      *lru.Cache[string, map[string]any]
	metrics    *metrics.Registry
	logger     *slog.Logger

	timeout     time.Duration
	cacheSize   int
	maxBodySize int64
	transport   http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCacheSize sets the JSON memo size. Zero disables memoization.
func WithCacheSize(n int) Option {
	return func(c *Client) {
		c.cacheSize = n
	}
}

// WithMaxBodySize sets the largest accepted response body in bytes.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithMetrics records every request in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient creates a client for host authenticating as user.
func NewClient(host, user, password string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}

	c := &Client{
		base:        base,
		timeout:     DefaultTimeout,
		cacheSize:   DefaultCacheSize,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
		transport:   http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cacheSize > 0 {
		cache, err := lru.New[string, map[string]any](c.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		c.cache = cache
	}

	c.httpClient = &http.Client{
		Timeout: c.timeout,
		Transport: &basicAuthTransport{
			base:     c.transport,
			user:     user,
			password: password,
		},
	}
	return c, nil
}

// Session returns a client sharing c's connection and credential but with
// an empty memo and its requests recorded in r. A crawl run uses its own
// session so nothing is remembered between runs.
func (c *Client) Session(r *metrics.Registry) *Client {
	s := *c
	s.metrics = r
	s.cache = nil
	if c.cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		s.cache, _ = lru.New[string, map[string]any](c.cacheSize)
	}
	return &s
}

// Host returns the repository base URL.
func (c *Client) Host() string {
	return c.base.String()
}

// GetJSON fetches path and decodes the body as a JSON object.
// The returned map may be shared with other callers and must not be modified.
func (c *Client) GetJSON(ctx context.Context, path string) (map[string]any, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(path); ok {
			c.recordCacheHit()
			return v, nil
		}
	}

	start := time.Now()
	body, err := c.get(ctx, path)
	if err != nil {
		c.record(metrics.KindJSON, outcomeOf(err), start)
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		c.record(metrics.KindJSON, metrics.OutcomeInvalidJSON, start)
		return nil, fmt.Errorf("GET %s: %w", path, ErrInvalidJSON)
	}
	c.record(metrics.KindJSON, metrics.OutcomeOK, start)

	if c.cache != nil {
		c.cache.Add(path, doc)
	}
	return doc, nil
}

// GetText fetches path and returns the body as a string.
func (c *Client) GetText(ctx context.Context, path string) (string, error) {
	start := time.Now()
	body, err := c.get(ctx, path)
	c.record(metrics.KindText, outcomeOf(err), start)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBinary fetches path and returns the raw body.
func (c *Client) GetBinary(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	body, err := c.get(ctx, path)
	c.record(metrics.KindBinary, outcomeOf(err), start)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	target := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("fetching", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("GET %s: %w", path, ErrTimeout)
		}
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)) //nolint:errcheck // best-effort drain
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode}
	}

	// One byte past the limit tells a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("GET %s: %w", path, ErrTimeout)
		}
		return nil, fmt.Errorf("GET %s: failed to read body: %w", path, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("GET %s: %w (limit %d bytes)", path, ErrBodyTooLarge, c.maxBodySize)
	}
	return body, nil
}

func (c *Client) record(kind, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordFetch(kind, outcome, time.Since(start))
	}
}

func (c *Client) recordCacheHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcomeOf(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &statusErr):
		return metrics.OutcomeStatus
	case errors.Is(err, ErrTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

// basicAuthTransport attaches a basic-auth credential to every request.
type basicAuthTransport struct {
	base     http.RoundTripper
	user     string
	password string
}

// RoundTrip implements http.RoundTripper.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.user, t.password)
	return t.base.RoundTrip(clone)
}
