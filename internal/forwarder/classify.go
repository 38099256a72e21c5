package forwarder

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// ErrorKind separates upstream call failures into the buckets that produce
// distinct client-facing details. Classification looks at the error chain
// only, never at how long the call took.
type ErrorKind int

const (
	// KindTimeout means the call's deadline expired.
	KindTimeout ErrorKind = iota
	// KindConnection means the transport never reached the upstream:
	// refused, reset, or unreachable.
	KindConnection
	// KindRequest covers every remaining failure, such as a malformed
	// response body or an unexpected status.
	KindRequest
)

// Classify maps a failed echo call to its kind. The deadline check runs
// first: a dial that times out carries both context.DeadlineExceeded and a
// *net.OpError in its chain and must count as a timeout.
func Classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return KindConnection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	return KindRequest
}

// Details renders the client-facing details line for a failed call.
func (k ErrorKind) Details(err error) string {
	switch k {
	case KindTimeout:
		return "Timeout: " + err.Error()
	case KindConnection:
		return "Connection error: " + err.Error()
	default:
		return "Request error: " + err.Error()
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	default:
		return "request"
	}
}
