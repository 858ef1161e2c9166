package jwt

import (
	"net/http"
	"strings"
)

// BearerHeader is the request header that carries the session token.
const BearerHeader = "Authorization"

// BearerTransport attaches the token returned by token to every outgoing request.
// Requests go out unauthenticated while token returns an empty string.
type BearerTransport struct {
	Token func() string
	Next  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}

	tok := ""
	if t.Token != nil {
		tok = t.Token()
	}

	if tok == "" || r.Header.Get(BearerHeader) != "" {
		return next.RoundTrip(r)
	}

	clone := r.Clone(r.Context())
	clone.Header.Set(BearerHeader, "Bearer "+tok)

	return next.RoundTrip(clone)
}

// TokenFromHeader extracts the token from a "Bearer <token>" header value.
func TokenFromHeader(h string) (string, bool) {
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
