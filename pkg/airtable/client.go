// Package airtable is a typed client for the Airtable REST API. A Client
// holds the process-wide endpoint, cache, and completion queue; a
// Repository binds a model type to one table.
package airtable

import (
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/airtable/pkg/cache"
	"github.com/conduit-lang/airtable/pkg/dispatch"
	"github.com/conduit-lang/airtable/pkg/transport"
)

// ErrMissingCredentials is returned when Config lacks an app id or API key
var ErrMissingCredentials = errors.New("app id and API key are required")

// Config is the one-time setup for a Client
type Config struct {
	// AppID identifies the base, e.g. "appXXXXXXXXXXXXXX"
	AppID string
	// APIKey is sent as a bearer token on every request
	APIKey string
	// BaseURL overrides the API root; defaults to transport.DefaultBaseURL
	BaseURL string
	// CacheDir is where cached records live; defaults to the user cache dir
	CacheDir string
	// Timeout bounds each HTTP request; defaults to 30s
	Timeout time.Duration
}

// Client is shared by every Repository
type Client struct {
	transport *transport.Client
	cache     *cache.Cache
	queue     *dispatch.Queue
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient transport.Doer
	backend    cache.Backend
	cacheOpts  []cache.Option
}

// WithLogger sets the logger for every component
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient replaces the HTTP client used by the transport
func WithHTTPClient(doer transport.Doer) Option {
	return func(o *options) { o.httpClient = doer }
}

// WithCacheBackend replaces the file backend
func WithCacheBackend(backend cache.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithCacheOptions passes options through to the cache
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}

// New builds a Client. The endpoint and credentials are fixed for the
// client's lifetime.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if o.backend == nil {
		dir := cfg.CacheDir
		if dir == "" {
			var err error
			if dir, err = cache.DefaultDir(); err != nil {
				return nil, err
			}
		}
		backend, err := cache.NewFileBackend(dir)
		if err != nil {
			return nil, err
		}
		o.backend = backend
	}

	if o.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		o.httpClient = &http.Client{Timeout: timeout}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = transport.DefaultBaseURL
	}
	endpoint := transport.SetupWithBase(baseURL, cfg.AppID, cfg.APIKey)

	cacheOpts := append([]cache.Option{cache.WithLogger(o.logger.Named("cache"))}, o.cacheOpts...)

	return &Client{
		transport: transport.NewClient(endpoint,
			transport.WithHTTPClient(o.httpClient),
			transport.WithLogger(o.logger.Named("transport")),
		),
		cache:  cache.New(o.backend, cacheOpts...),
		queue:  dispatch.NewQueue(o.logger.Named("dispatch")),
		logger: o.logger,
	}, nil
}

// Transport returns the request executor
func (c *Client) Transport() *transport.Client {
	return c.transport
}

// Cache returns the record cache
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// Queue returns the executor completion callbacks run on
func (c *Client) Queue() *dispatch.Queue {
	return c.queue
}

// Close drains pending completion callbacks and releases the cache backend
func (c *Client) Close() error {
	c.queue.Close()
	if closer, ok := c.cache.Backend().(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
