package dwayee

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

	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout              = 15 * time.Second
	errorBodyReadLimit    int64 = 1024
	responseBodyReadLimit int64 = 4 << 20

	headerRequestID = "X-Request-Id"
)

var (
	errBaseURLRequired = errors.New("dwayee api base url is required")
	errUpstream5xx     = errors.New("dwayee api server error")
)

// Client talks to the Dwayee REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithBreaker puts a circuit breaker in front of every request.
func WithBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = newBreaker(settings)
	}
}

// WithLogger attaches a structured logger for request tracing.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// NewClient builds the API client rooted at baseURL (for example https://host/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	client := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logg:       logger.Nop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		return nil, errBaseURLRequired
	}
	if client.breaker == nil {
		client.breaker = newBreaker(BreakerSettings{})
	}
	return client, nil
}

type rawResponse struct {
	status int
	body   []byte
}

type request struct {
	op          string
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

func jsonRequest(op, path, token string, payload any) (request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return request{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode "+op+" request")
	}
	return request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		token:       token,
		body:        bytes.NewReader(encoded),
		contentType: "application/json",
	}, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// send executes the request through the breaker and returns the buffered response.
// Transport errors and 5xx answers count against the breaker.
func (c *Client) send(ctx context.Context, req request) (*rawResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dwayee client not configured")
	}

	requestID := uuid.NewString()
	ctx = c.logg.WithFields(ctx, map[string]any{
		"request_id": requestID,
		"operation":  req.op,
		"method":     req.method,
		"path":       req.path,
	})

	start := time.Now()
	var (
		raw          *rawResponse
		transportErr error
	)
	_, err := c.breaker.Execute(func() (*rawResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.method, c.url(req.path), req.body)
		if err != nil {
			transportErr = err
			return nil, err
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set(headerRequestID, requestID)
		if req.contentType != "" {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
		if req.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+req.token)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			transportErr = err
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		if err != nil {
			transportErr = err
			return nil, err
		}
		raw = &rawResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, errUpstream5xx
		}
		return raw, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logg.Warn(ctx, "dwayee.request.short_circuited")
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, req.op+" unavailable")
	case transportErr != nil:
		c.logg.WarnErr(ctx, "dwayee.request.transport_failed", transportErr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, transportErr, req.op+" request failed")
	case err != nil && !errors.Is(err, errUpstream5xx):
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, req.op+" request failed")
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"status":      raw.status,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	c.logg.Debug(ctx, "dwayee.request.complete")
	return raw, nil
}

// ensureOK maps non-2xx statuses onto the error taxonomy.
func ensureOK(op string, raw *rawResponse) error {
	if raw.status >= 200 && raw.status < 300 {
		return nil
	}
	upstream := &pkgerrors.UpstreamError{Status: raw.status, Message: upstreamMessage(raw.body)}
	if raw.status == http.StatusUnauthorized {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthenticated, upstream, "session expired, please sign in again")
	}
	return pkgerrors.Wrap(pkgerrors.CodeNetwork, upstream, op+" failed")
}

// upstreamMessage extracts the API's message field, falling back to the raw (bounded) body.
func upstreamMessage(body []byte) string {
	var status struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &status); err == nil && strings.TrimSpace(status.Message) != "" {
		return strings.TrimSpace(status.Message)
	}
	if int64(len(body)) > errorBodyReadLimit {
		body = body[:errorBodyReadLimit]
	}
	return strings.TrimSpace(string(body))
}

// decode parses and validates a 2xx body; any mismatch is a network failure.
func decode(op string, raw *rawResponse, out any) error {
	if err := json.Unmarshal(raw.body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("decode %s response", op))
	}
	if err := schemaValidator.Struct(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("malformed %s response", op))
	}
	return nil
}
