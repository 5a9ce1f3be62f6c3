package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindMalformedCredential ErrorKind = "malformed_credential"
	KindInvalidUserPayload  ErrorKind = "invalid_user_payload"
	KindRemoteOperation     ErrorKind = "remote_operation"
)

// Error is the tagged failure type shared by the extractor and the provider.
// Status is the HTTP status of a failed remote call, 0 for transport errors.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    error
}

var (
	ErrMalformedCredential = &Error{Kind: KindMalformedCredential}
	ErrInvalidUserPayload  = &Error{Kind: KindInvalidUserPayload}
	ErrRemoteOperation     = &Error{Kind: KindRemoteOperation}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels, so errors.Is(err, ErrRemoteOperation) holds for
// any remote failure regardless of op or status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Status == 0 && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func MalformedCredential(err error) error {
	return &Error{Kind: KindMalformedCredential, Op: "extract user id", Err: err}
}

func InvalidUserPayload(err error) error {
	return &Error{Kind: KindInvalidUserPayload, Op: "extract user id", Err: err}
}

func RemoteError(op string, status int, err error) error {
	return &Error{Kind: KindRemoteOperation, Op: op, Status: status, Err: err}
}
