package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/airtable/internal/metrics"
)

// RequestIDHeader carries a per-request id for log correlation
const RequestIDHeader = "X-Request-ID"

// Doer executes HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client executes Requests against an Endpoint. It makes exactly one attempt
// per request.
type Client struct {
	endpoint Endpoint
	http     Doer
	logger   *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger sets the logger for request failures
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for endpoint
func NewClient(endpoint Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint the client was built with
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Do executes req and returns the decoded JSON object. A successful response
// whose body is empty or not a JSON object yields neither payload nor error.
func (c *Client) Do(ctx context.Context, req Request) (map[string]any, error) {
	httpReq, err := req.Build(ctx, c.endpoint)
	if err != nil {
		metrics.Requests.WithLabelValues(string(req.Method), "invalid").Inc()
		return nil, &UncategorizedError{Message: err.Error(), Err: err}
	}

	requestID := uuid.New().String()
	httpReq.Header.Set(RequestIDHeader, requestID)
	log := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", string(req.Method)),
		zap.String("path", req.Path),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Warn("server error on request", zap.Error(err))
		metrics.Requests.WithLabelValues(string(req.Method), "transport_error").Inc()
		return nil, &UncategorizedError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("server error on request", zap.Int("status", resp.StatusCode), zap.Error(err))
		metrics.Requests.WithLabelValues(string(req.Method), "transport_error").Inc()
		return nil, &UncategorizedError{Message: err.Error(), Code: resp.StatusCode, Err: err}
	}

	payload, err := c.translate(log, resp.StatusCode, body)
	switch {
	case err != nil:
		metrics.Requests.WithLabelValues(string(req.Method), "error").Inc()
	case payload == nil:
		metrics.Requests.WithLabelValues(string(req.Method), "empty").Inc()
	default:
		metrics.Requests.WithLabelValues(string(req.Method), "ok").Inc()
	}
	return payload, err
}

// translate maps a response body onto a payload or a classified error
func (c *Client) translate(log *zap.Logger, status int, body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		log.Warn("server error on request", zap.Int("status", status), zap.Error(err))
		return nil, &UncategorizedError{
			Message: fmt.Sprintf("invalid response body: %v", err),
			Code:    status,
			Err:     err,
		}
	}

	object, ok := decoded.(map[string]any)
	if !ok {
		return nil, nil
	}

	reason, hasReason := object["error"].(string)
	message, hasMessage := object["message"].(string)
	if !hasReason || !hasMessage {
		return object, nil
	}

	code := 0
	if s, ok := object["status"].(float64); ok {
		code = int(s)
	}
	log.Warn("application error on request",
		zap.String("reason", reason),
		zap.String("message", message),
		zap.Int("status", code),
	)
	return nil, Classify(code, reason, message)
}
