package gateway

import (
	"errors"
	"fmt"
)

// Caller errors, returned before any network activity.
var (
	ErrMissingURL             = errors.New("gateway: url is required")
	ErrUnsupportedMethod      = errors.New("gateway: unsupported method")
	ErrUnsupportedContentType = errors.New("gateway: unsupported content type")
	ErrUnsupportedPayload     = errors.New("gateway: unsupported payload")
	ErrMultipartMethod        = errors.New("gateway: multipart payload requires post, put or patch")
)

const (
	// DefaultFailureMessage is shown when a failed response carries no message.
	DefaultFailureMessage = "service error"
	// CanceledType and TimeoutMessage describe calls that never got a response.
	CanceledType   = "canceled"
	TimeoutMessage = "request timed out"
)

// Kind classifies envelope-level failures.
type Kind string

const (
	KindApplication  Kind = "application"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// EnvelopeError is returned when a 2xx response carries a non-success code.
// It holds the raw envelope.
type EnvelopeError struct {
	Kind     Kind
	Envelope Envelope
}

func (e *EnvelopeError) Error() string {
	msg := e.Envelope.Message()
	if msg == "" {
		msg = DefaultFailureMessage
	}
	return fmt.Sprintf("gateway: %s error (code %q): %s", e.Kind, e.Envelope.Code(), msg)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int    `json:"code"`
	RespMsg string `json:"respMsg"`
	// HTTPStatus is the transport status, which may differ from Code when the
	// error body carries its own status.
	HTTPStatus int `json:"-"`
	// BodyStatus holds a non-numeric status field from the error body, such
	// as "ERR_AUTH", which cannot populate Code.
	BodyStatus string `json:"status,omitempty"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.Code, e.RespMsg)
}

// CanceledError is returned when no response arrived: timeout, cancellation
// or a network failure.
type CanceledError struct {
	Type    string `json:"type"`
	RespMsg string `json:"respMsg"`
	Err     error  `json:"-"`
}

func newCanceledError(err error) *CanceledError {
	return &CanceledError{Type: CanceledType, RespMsg: TimeoutMessage, Err: err}
}

func (e *CanceledError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway: %s: %s: %v", e.Type, e.RespMsg, e.Err)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Type, e.RespMsg)
}

func (e *CanceledError) Unwrap() error { return e.Err }
