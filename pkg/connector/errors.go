package connector

import (
	"errors"
	"fmt"
)

// Kind classifies connector failures.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindEmpty     Kind = "empty"
	KindMalformed Kind = "malformed"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
)

// APIError is returned by every Client operation. Message is what callers
// see; Err keeps the underlying cause for logs.
type APIError struct {
	Kind    Kind
	Op      string
	Message string
	Status  int // upstream status, 0 when no response
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Upstream reports whether the failure came from the APIMS call rather than
// from the caller's input.
func (e *APIError) Upstream() bool { return e.Kind != KindDecode }

func newAPIError(kind Kind, op, msg string, status int, err error) *APIError {
	return &APIError{Kind: kind, Op: op, Message: msg, Status: status, Err: err}
}

// KindOf extracts the Kind of err, or "" when err is not an *APIError.
func KindOf(err error) Kind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsUpstream reports whether err is an upstream-error condition.
func IsUpstream(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Upstream()
}
