// Package apperr carries user-facing failures with a stable code, independent
// of the HTTP layer.
package apperr

import "errors"

type Code string

const (
	CodeMissingField   Code = "missing_field"
	CodeDuplicateEmail Code = "duplicate_email"
	CodeMalformedCode  Code = "malformed_code"
	CodeAlreadyScanned Code = "already_scanned"
	CodeNotFound       Code = "not_found"
	CodeEmailMismatch  Code = "email_mismatch"
	CodeNoCamera       Code = "no_camera"
	CodeCameraFailure  Code = "camera_failure"
	CodeInvalidState   Code = "invalid_state"
	CodeStoreFailure   Code = "store_failure"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap keeps err reachable through errors.Unwrap.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
