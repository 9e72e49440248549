// Package service implements the core proxy forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/net/http/httpguts"

	"cors-proxy-go/internal/client"
	"cors-proxy-go/internal/metrics"
	"cors-proxy-go/internal/model"
)

// DefaultContentType is used when the upstream sends no usable Content-Type.
const DefaultContentType = "application/json"

// ProxyService validates inbound requests and relays them to their targets.
type ProxyService struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyService creates a ProxyService.
// The metrics parameter is optional; pass nil to disable rejection counting.
func NewProxyService(c *client.UpstreamClient, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
	}
}

// Forward runs one request through method gating, target validation and a
// single upstream exchange. Rejections happen before any network I/O. The
// upstream status is reported in the response but callers reply 200 on any
// successful exchange.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	method, err := ParseMethod(pr.Method)
	if err != nil {
		s.reject("method_not_allowed", "not valid HTTP method specified", "method", pr.Method)
		return nil, err
	}

	target, err := NormalizeTarget(pr.Target)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingURL):
			s.reject("missing_url", "no url specified")
		case errors.Is(err, ErrUnsupportedProtocol):
			s.reject("unsupported_protocol", "unsupported protocol", "target", pr.Target)
		case errors.Is(err, ErrInvalidDomain):
			s.reject("invalid_domain", "invalid domain", "target", pr.Target)
		}
		return nil, err
	}

	s.logger.Info("forwarding request",
		"method", method.String(),
		"target", target,
	)

	resp, err := s.client.Do(pr.Ctx, method.String(), target, pr.Body)
	if err != nil {
		s.logger.Warn("forward failed",
			"method", method.String(),
			"target", target,
			"err", err,
		)
		return nil, fmt.Errorf("forward to %s: %w", target, err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("upstream status replaced with 200",
			"target", target,
			"upstream_status", resp.StatusCode,
		)
	}

	return &model.ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: ContentType(resp.Header),
		Body:        resp.Body,
	}, nil
}

func (s *ProxyService) reject(reason, msg string, args ...any) {
	if s.metrics != nil {
		s.metrics.Rejections.WithLabelValues(reason).Inc()
	}
	s.logger.Warn("bad request: "+msg, args...)
}

// ContentType returns the upstream Content-Type when it is present and a
// valid header value, and DefaultContentType otherwise.
func ContentType(h http.Header) string {
	ct := h.Get("Content-Type")
	if ct == "" || !httpguts.ValidHeaderFieldValue(ct) {
		return DefaultContentType
	}
	return ct
}
