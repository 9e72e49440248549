package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/client"
	"cors-proxy-go/internal/model"
	"cors-proxy-go/internal/service"
)

// corsHeaders are attached to every successfully forwarded response.
var corsHeaders = [][2]string{
	{echo.HeaderAccessControlAllowOrigin, "*"},
	{echo.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS"},
	{echo.HeaderAccessControlAllowHeaders, "Content-Type"},
	{echo.HeaderAccessControlMaxAge, "3600"},
}

// ProxyHandler relays requests to the target named in the request path.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request to the target and replies with the buffered
// upstream body, its content type and permissive CORS headers. A successful
// forward always answers 200, whatever status the upstream returned.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	// Body size is capped by the BodyLimit middleware; its error becomes a 413.
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}

	pr := &model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Target: targetFromRequest(req),
		Body:   body,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}

	header := c.Response().Header()
	for _, kv := range corsHeaders {
		header.Set(kv[0], kv[1])
	}

	// Headers are already committed if Blob fails, so the error is only logged.
	if err := c.Blob(http.StatusOK, resp.ContentType, resp.Body); err != nil {
		h.logger.Error("writing response body",
			"err", err,
			"path", req.URL.Path,
		)
	}
	return nil
}

// targetFromRequest returns everything after the leading slash of the request
// path, escaped as received, with the raw query string re-attached.
func targetFromRequest(req *http.Request) string {
	target := strings.TrimPrefix(req.URL.EscapedPath(), "/")
	if target != "" && req.URL.RawQuery != "" {
		target += "?" + req.URL.RawQuery
	}
	return target
}

// mapError writes the plain-text reply for a failed request. Rejections carry
// fixed messages; gateway errors include the underlying cause.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingURL):
		return c.String(http.StatusBadRequest, "No URL specified")
	case errors.Is(err, service.ErrUnsupportedProtocol):
		return c.String(http.StatusBadRequest, "Unsupported protocol. Only HTTP and HTTPS are allowed.")
	case errors.Is(err, service.ErrInvalidDomain):
		return c.String(http.StatusBadRequest, "Invalid domain name")
	case errors.Is(err, service.ErrMethodNotAllowed):
		return c.NoContent(http.StatusMethodNotAllowed)
	}

	if errors.Is(err, client.ErrBodyRead) {
		return c.String(http.StatusBadGateway, "Failed to read response body: "+client.Cause(err).Error())
	}
	return c.String(http.StatusBadGateway, "Failed to forward request: "+client.Cause(err).Error())
}
