package service

import (
	"errors"
	"strings"
)

var (
	// ErrMissingURL is returned when the request path carries no target.
	ErrMissingURL = errors.New("no URL specified")

	// ErrUnsupportedProtocol is returned for targets with a scheme other than http or https.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrInvalidDomain is returned when the host part of the target has no dot.
	ErrInvalidDomain = errors.New("invalid domain name")
)

const (
	schemeSeparator = "://"
	defaultScheme   = "https://"
)

// NormalizeTarget validates a target taken verbatim from the request path and
// returns it as an absolute http(s) URL. Targets without a scheme get
// https:// prepended; targets that already carry http:// or https:// are
// returned unchanged, so normalizing twice is a no-op.
//
// Single-label hosts such as "localhost" are rejected because the domain part
// must contain a dot.
func NormalizeTarget(s string) (string, error) {
	if s == "" {
		return "", ErrMissingURL
	}

	hasScheme := hasHTTPScheme(s)
	if strings.Contains(s, schemeSeparator) && !hasScheme {
		return "", ErrUnsupportedProtocol
	}

	domain := s
	if i := strings.LastIndex(s, schemeSeparator); i >= 0 {
		domain = s[i+len(schemeSeparator):]
	}
	if !strings.Contains(domain, ".") {
		return "", ErrInvalidDomain
	}

	if hasScheme {
		return s, nil
	}
	return defaultScheme + s, nil
}

func hasHTTPScheme(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
