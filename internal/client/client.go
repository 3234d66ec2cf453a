// Package client implements the data-access object for a todo collection
// served over REST in the jsonplaceholder format.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// Default client settings.
const (
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	DefaultTimeout = 30 * time.Second
	CollectionPath = "/todos"
	APIKeyHeader   = "X-API-Key"
	maxErrorBody   = 4096
)

// Client errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrInvalidBaseURL   = errors.New("invalid base URL")
	ErrInvalidQuery     = errors.New("unsupported query type")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s: %d %s", e.Method, e.URL, ErrUnexpectedStatus,
		e.StatusCode, strings.TrimSpace(e.Body))
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Option configures a TodoClient.
type Option func(*TodoClient)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// still wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *TodoClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *TodoClient) {
		c.timeout = d
	}
}

// WithRateLimit limits outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *TodoClient) {
		if r > 0 {
			c.limiter = rate.NewLimiter(r, max(burst, 1))
		}
	}
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *TodoClient) {
		c.apiKey = key
	}
}

// WithBasicAuth sends HTTP basic credentials.
func WithBasicAuth(user, password string) Option {
	return func(c *TodoClient) {
		c.basicUser = user
		c.basicPass = password
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *TodoClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// TodoClient performs the network calls behind a todo store.
type TodoClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	apiKey     string
	basicUser  string
	basicPass  string
	logger     *zap.Logger
}

// New creates a client for the todo collection under baseURL.
func New(baseURL string, opts ...Option) (*TodoClient, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &TodoClient{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := c.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	c.httpClient = &http.Client{
		Transport:     otelhttp.NewTransport(transport),
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Timeout:       c.timeout,
	}

	return c, nil
}

// BaseURL returns the service root the client talks to.
func (c *TodoClient) BaseURL() string {
	return c.baseURL.String()
}

// ReadAll fetches the todo list. query may be nil, a raw query string,
// url.Values or a map[string]string and is sent as the query string.
func (c *TodoClient) ReadAll(ctx context.Context, query any) ([]model.Todo, error) {
	values, err := toValues(query)
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}

	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, c.collectionURL(values), nil, &todos); err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// ReadOne fetches a single todo.
func (c *TodoClient) ReadOne(ctx context.Context, id int) (model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, &todo); err != nil {
		return model.Todo{}, fmt.Errorf("read todo %d: %w", id, err)
	}
	return todo, nil
}

// Create posts a new todo and returns the stored value.
func (c *TodoClient) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, c.collectionURL(nil), todo, &created); err != nil {
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return created, nil
}

// Update replaces the todo with the same id and returns the stored value.
func (c *TodoClient) Update(ctx context.Context, todo model.Todo) (model.Todo, error) {
	var updated model.Todo
	if err := c.do(ctx, http.MethodPut, c.itemURL(todo.ID), todo, &updated); err != nil {
		return model.Todo{}, fmt.Errorf("update todo %d: %w", todo.ID, err)
	}
	return updated, nil
}

// Delete removes the todo with the same id.
func (c *TodoClient) Delete(ctx context.Context, todo model.Todo) error {
	if err := c.do(ctx, http.MethodDelete, c.itemURL(todo.ID), nil, nil); err != nil {
		return fmt.Errorf("delete todo %d: %w", todo.ID, err)
	}
	return nil
}

func (c *TodoClient) collectionURL(values url.Values) string {
	u := *c.baseURL
	u.Path += CollectionPath
	u.RawQuery = values.Encode()
	return u.String()
}

func (c *TodoClient) itemURL(id int) string {
	u := *c.baseURL
	u.Path += CollectionPath + "/" + strconv.Itoa(id)
	return u.String()
}

// do sends one request, decoding a JSON response into out when out is not nil.
func (c *TodoClient) do(ctx context.Context, method, target string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	if c.basicUser != "" {
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.Debug("todo api request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(msg),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toValues(query any) (url.Values, error) {
	switch q := query.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return q, nil
	case map[string]string:
		values := make(url.Values, len(q))
		for k, v := range q {
			values.Set(k, v)
		}
		return values, nil
	case string:
		values, err := url.ParseQuery(q)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidQuery, query)
	}
}
