package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kjozsa/jenkins-mcp/pkg/version"
)

const (
	// DefaultTimeout is used when no transport timeout is configured.
	DefaultTimeout = 30 * time.Second

	// maxBodySize limits how much of a response body gets buffered.
	maxBodySize = 16 << 20
)

// Observer gets notified about every request sent to Jenkins.
type Observer interface {
	Observe(action string, duration time.Duration, err error)
}

// Response is the transport level answer, without any interpretation.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is the entry point to the Jenkins API for a single session.
type Client struct {
	client         *http.Client
	session        *Session
	timeout        time.Duration
	logger         *slog.Logger
	observer       Observer
	signatures     []string
	statusFallback bool

	Crumbs *CrumbManager
	Job    *JobClient
	Queue  *QueueClient
}

// Option configures the client.
type Option func(*Client)

// WithSession binds the client to the session state.
func WithSession(value *Session) Option {
	return func(c *Client) {
		c.session = value
	}
}

// WithTimeout sets the connect and read timeout of the transport.
func WithTimeout(value time.Duration) Option {
	return func(c *Client) {
		c.timeout = value
	}
}

// WithHTTPClient replaces the underlying HTTP client, its jar gets replaced
// by the session jar.
func WithHTTPClient(value *http.Client) Option {
	return func(c *Client) {
		c.client = value
	}
}

// WithLogger sets the logger.
func WithLogger(value *slog.Logger) Option {
	return func(c *Client) {
		c.logger = value
	}
}

// WithObserver registers a request observer, e.g. for metrics.
func WithObserver(value Observer) Option {
	return func(c *Client) {
		c.observer = value
	}
}

// WithCrumbSignatures defines the body fragments identifying a rejected crumb.
func WithCrumbSignatures(value []string) Option {
	return func(c *Client) {
		c.signatures = value
	}
}

// WithCrumbStatusFallback treats every 403 on a mutating request as a
// rejected crumb.
func WithCrumbStatusFallback(value bool) Option {
	return func(c *Client) {
		c.statusFallback = value
	}
}

// NewClient creates a new Jenkins client.
func NewClient(opts ...Option) (*Client, error) {
	client := &Client{
		timeout:    DefaultTimeout,
		signatures: DefaultCrumbSignatures,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.session == nil {
		return nil, fmt.Errorf("missing jenkins session")
	}

	if client.timeout <= 0 {
		client.timeout = DefaultTimeout
	}

	if client.logger == nil {
		client.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if client.client == nil {
		client.client = &http.Client{}
	}

	client.client.Timeout = client.timeout
	client.client.Jar = sessionJar{session: client.session}

	// Redirects are not followed, Jenkins answers a trigger with a Location
	// header and following it would turn the POST into a GET.
	client.client.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}

	client.Crumbs = &CrumbManager{
		client:  client,
		session: client.session,
		matcher: NewMatcher(client.signatures, client.statusFallback),
		logger:  client.logger.With("component", "crumb"),
	}

	client.Job = &JobClient{
		client: client,
		logger: client.logger.With("component", "job"),
	}

	client.Queue = &QueueClient{
		client: client,
		logger: client.logger.With("component", "queue"),
	}

	return client, nil
}

// Session returns the session bound to this client.
func (c *Client) Session() *Session {
	return c.session
}

// HTTPClient returns the configured transport.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// NewRequest prepares a request against a path below the Jenkins endpoint.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.session.Endpoint()+path, body)

	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jenkins-mcp/"+version.String)
	c.session.SetBasicAuth(req)

	return req, nil
}

// Do sends the request and buffers the response. Only transport failures
// are returned as errors, any status is handed back to the caller.
func (c *Client) Do(req *http.Request, action string) (*Response, error) {
	now := time.Now()
	resp, err := c.do(req)

	if c.observer != nil {
		c.observer.Observe(action, time.Since(now), err)
	}

	if err != nil {
		c.logger.Debug("request to jenkins failed",
			"action", action,
			"method", req.Method,
			"path", req.URL.Path,
			"err", err,
		)

		return nil, err
	}

	c.logger.Debug("request to jenkins finished",
		"action", action,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(now),
	)

	return resp, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.client.Do(req)

	if err != nil {
		return nil, &Error{
			Kind:    KindConnection,
			Message: fmt.Sprintf("failed to reach %s", c.session.Endpoint()),
			Err:     err,
		}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	if err != nil {
		return nil, &Error{
			Kind:    KindConnection,
			Message: "failed to read response body",
			Err:     err,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Close releases idle connections and tears down the session state.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return c.session.Close()
}

func decode(resp *Response, v any, action string) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &Error{
			Kind:    KindAPI,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("%s returned invalid JSON: %s", action, excerpt(resp.Body)),
			Err:     err,
		}
	}

	return nil
}
