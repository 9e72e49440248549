// Package client provides the HTTP client used to reach forwarding targets.
package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/metrics"
)

const userAgent = "cors-proxy-go/1.0"

var (
	// ErrUnreachable marks a request that never produced an upstream response
	// (DNS failure, refused connection, TLS failure, timeout, cancellation).
	ErrUnreachable = errors.New("upstream unreachable")

	// ErrBodyRead marks an upstream response whose body could not be read in full.
	ErrBodyRead = errors.New("upstream body read failed")
)

// UpstreamError carries the failure stage and the underlying transport error.
// It matches both Kind and Err with errors.Is.
type UpstreamError struct {
	Kind error
	Err  error
}

func (e *UpstreamError) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Response is a buffered upstream reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// UpstreamClient sends exactly one request per call to an arbitrary target.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return newUpstreamClient(&http.Client{
		Transport: transport,
		// Zero leaves the exchange unbounded, as the Go client does by default.
		Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
	}, logger, m)
}

// NewUpstreamClientForTest wraps a caller-supplied http.Client, such as the
// one returned by httptest.Server.Client for TLS test servers.
func NewUpstreamClientForTest(hc *http.Client, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	return newUpstreamClient(hc, logger, m)
}

func newUpstreamClient(hc *http.Client, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	return &UpstreamClient{
		httpClient: hc,
		logger:     logger.With("component", "upstream_client"),
		metrics:    m,
	}
}

// Do sends body to target with the given method and buffers the whole reply.
// No inbound headers are forwarded. The context controls the lifetime of the
// upstream exchange: when it is canceled (e.g. client disconnects), the
// upstream request is canceled too.
func (c *UpstreamClient) Do(ctx context.Context, method, target string, body []byte) (*Response, error) {
	var reqBody io.Reader = http.NoBody
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		// Invalid URLs fail here instead of in the transport; from the caller's
		// point of view the target is just as unreachable.
		c.recordError(method, "send")
		return nil, &UpstreamError{Kind: ErrUnreachable, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("upstream request",
		"method", method,
		"host", req.URL.Host,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, start)
		c.recordError(method, "send")
		return nil, &UpstreamError{Kind: ErrUnreachable, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	c.observe(method, start)
	if err != nil {
		c.recordError(method, "read")
		return nil, &UpstreamError{Kind: ErrBodyRead, Err: err}
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(metrics.NormalizeMethod(method), strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *UpstreamClient) observe(method string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(metrics.NormalizeMethod(method)).Observe(time.Since(start).Seconds())
}

func (c *UpstreamClient) recordError(method, stage string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamErrors.WithLabelValues(metrics.NormalizeMethod(method), stage).Inc()
}

// Cause returns the underlying error of an UpstreamError, or err itself.
func Cause(err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

