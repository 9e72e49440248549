// Package model defines shared types for the proxy.
package model

import (
	"context"
)

// ProxyRequest represents an inbound request to be relayed to a target.
// Target is the raw, not yet validated string taken from the request path.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Target string
	Body   []byte
}

// ProxyResponse is a fully buffered upstream reply.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}
