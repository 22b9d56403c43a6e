package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a failed request for the operator.
type Kind int

const (
	KindUnexpected Kind = iota
	KindTimeout
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unexpected"
	}
}

// Error is a failed API call.
type Error struct {
	Kind   Kind
	Op     string // request path
	Status int    // HTTP status for KindServer
	Server string // error text from the response body or the status text
	Code   string // server error code, when present
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Server)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the operator.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timeout. Please try again."
	case KindServer:
		return "Server error: " + e.Server
	case KindNetwork:
		return "Network error. Please check your connection."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// UserMessage returns the operator text for any error returned by Client.
func UserMessage(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	return (&Error{Kind: KindUnexpected}).UserMessage()
}

// transportError classifies an error from http.Client.Do: no response was
// received.
func transportError(op string, err error) *Error {
	e := &Error{Op: op, Err: err}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Kind = KindTimeout
	case errors.Is(err, context.Canceled):
		e.Kind = KindUnexpected
	case errors.As(err, &urlErr):
		e.Kind = KindNetwork
	default:
		e.Kind = KindUnexpected
	}
	return e
}
