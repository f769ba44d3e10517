package ember

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the handful of error conditions the serving core itself
// raises. It exists so the request pipeline can map an error to the right
// HTTP status without string-matching or type-switching on stdlib errors.
type Kind uint8

// The kinds of errors the core produces, per the error handling design.
const (
	// KindBadRequest covers a URL that is too long, malformed percent
	// encoding, a path traversal attempt, or a route parameter that fails
	// its value constraint.
	KindBadRequest Kind = iota

	// KindNotFound covers an unmatched route or a missing static file.
	KindNotFound

	// KindForbidden covers a resolved static path that escapes its root.
	KindForbidden

	// KindRangeNotSatisfiable covers an invalid byte-range request.
	KindRangeNotSatisfiable

	// KindInternal covers a render exception, a missing render module, or
	// an I/O error while sending a response.
	KindInternal
)

// Status returns the HTTP status code associated with the k.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindRangeNotSatisfiable:
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindRangeNotSatisfiable:
		return "range_not_satisfiable"
	default:
		return "internal"
	}
}

// CoreError is the error type returned by the core's own components. It
// carries a Kind so callers can recover the right status without sniffing
// error strings, and it wraps an optional cause for logging.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

// newError returns a new *CoreError of the given kind and message.
func newError(k Kind, message string) *CoreError {
	return &CoreError{Kind: k, Message: message}
}

// wrapError returns a new *CoreError of the given kind wrapping cause.
func wrapError(k Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: k, Message: message, Cause: cause}
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ember: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("ember: %s", e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code that should be sent for err. Errors
// that are not a *CoreError are treated as internal errors.
func Status(err error) int {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind.Status()
	}
	return http.StatusInternalServerError
}
