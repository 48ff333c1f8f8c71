package gateway

import (
	"errors"
	"fmt"
)

// ErrResponseTooLarge means the response body was not read in full
var ErrResponseTooLarge = errors.New("response exceeds 10 MiB")

// Kind classifies a failed call
type Kind int

const (
	// KindTransport: the request never reached the server or no response came back
	KindTransport Kind = iota + 1
	// KindServer: the server answered with a non-2xx status
	KindServer
	// KindApplication: a 2xx response whose body declares status "failure"
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error shape returned by the gateway.
// Error() is the human-readable message and nothing else, so it can be
// shown to the user as is.
type Error struct {
	Kind     Kind
	Method   string
	Endpoint string
	Status   int // zero for transport failures
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a gateway error of the given kind
func IsKind(err error, kind Kind) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Kind == kind
}

// StatusCode returns the HTTP status carried by err, or zero
func StatusCode(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}
