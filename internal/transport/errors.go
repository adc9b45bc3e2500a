package transport

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a transport-level failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetworkUnreachable
	KindCrossOrigin
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindCrossOrigin:
		return "cross_origin"
	default:
		return "unknown"
	}
}

// User-facing messages attached to classified failures.
const (
	MsgNetworkUnreachable = "network error: no API server is reachable at the configured base URL; make sure the backend is running or enable the mock backend"
	MsgCrossOrigin        = "cross-origin request rejected: the API server must allow requests from this origin; check the backend CORS configuration"
)

// ErrCORS marks a response that cross-origin policy refused to expose.
var ErrCORS = errors.New("response blocked by cross-origin policy")

// Error is a classified transport failure. It keeps the underlying error,
// so errors.Is and errors.As still reach the original cause.
type Error struct {
	Kind    Kind
	Message string
	Method  string
	URL     string
	Status  int // 0 when no response was exposed
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// BackendError is a response the backend itself marked as failed, either by
// HTTP status or by a non-200 code in the JSON envelope.
type BackendError struct {
	Status  int // HTTP status
	Code    int // envelope code
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned code %d (http %d)", e.Code, e.Status)
}

// Classify maps a failed round trip to a Kind. status is the HTTP status
// that was exposed to the caller, 0 if none.
func Classify(status int, err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case status == 0 && errors.Is(err, ErrCORS):
		return KindCrossOrigin
	case status != 0:
		return KindUnknown
	case errors.Is(err, errEncodeBody):
		// The request body could not be produced; the server is not at fault.
		return KindUnknown
	case errors.Is(err, context.Canceled):
		// Abandoned by the caller, not a reachability problem.
		return KindUnknown
	default:
		return KindNetworkUnreachable
	}
}

// IsNetworkUnreachable reports whether err was classified as network-unreachable.
func IsNetworkUnreachable(err error) bool { return kindOf(err) == KindNetworkUnreachable }

// IsCrossOrigin reports whether err was classified as cross-origin-rejected.
func IsCrossOrigin(err error) bool { return kindOf(err) == KindCrossOrigin }

func kindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
