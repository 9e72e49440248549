package service

import (
	"errors"
	"net/http"
)

// ErrMethodNotAllowed is returned for any inbound method outside the forwarding allowlist.
var ErrMethodNotAllowed = errors.New("method not allowed")

// Method is an HTTP method the proxy is willing to forward.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodDelete
)

// ParseMethod maps an inbound method to its outbound counterpart. Matching is
// exact and case-sensitive; anything else, OPTIONS, HEAD and PATCH included,
// yields ErrMethodNotAllowed.
func ParseMethod(s string) (Method, error) {
	switch s {
	case http.MethodGet:
		return MethodGet, nil
	case http.MethodPost:
		return MethodPost, nil
	case http.MethodPut:
		return MethodPut, nil
	case http.MethodDelete:
		return MethodDelete, nil
	}
	return 0, ErrMethodNotAllowed
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodPost:
		return http.MethodPost
	case MethodPut:
		return http.MethodPut
	case MethodDelete:
		return http.MethodDelete
	}
	return "INVALID"
}
