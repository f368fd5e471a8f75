// Package client talks to the rxstock REST API. It serves as the durable
// collaborator behind a session's gateway and as its seed source.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"rxstock/m/domain"
)

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 200 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
)

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	log     zerolog.Logger
}

type Option func(*retryablehttp.Client)

// WithRetries overrides how often and how patiently transient failures are
// retried.
func WithRetries(max int, waitMin, waitMax time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *retryablehttp.Client) { c.HTTPClient.Timeout = d }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{log: log.With().Str("component", "client").Logger()}
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		log:     log,
	}
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields"`
}

// do sends one request and decodes a successful reply into out. Error
// replies are mapped back onto the domain errors the server started from.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func responseError(op string, resp *http.Response) error {
	var body errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}

	switch resp.StatusCode {
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", op, &domain.ValidationError{Fields: body.Fields})
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidTransition)
	case http.StatusPreconditionRequired:
		return fmt.Errorf("%s: %w", op, domain.ErrNotConfirmed)
	}
	return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(body.Error)}
}

// Health reports whether the API and its database answer.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// leveledLogger adapts zerolog to retryablehttp's LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
