package client

import (
	"errors"
	"net"
	"net/http"
)

// Common session errors
var (
	// ErrInvalidConfig indicates the session configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoAuth indicates the session was created without a header builder
	ErrNoAuth = errors.New("no auth header builder")
)

// isDialError reports whether err happened while connecting, before any
// request bytes were written.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// mutates reports whether a request with this method can change server
// state.
func mutates(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
