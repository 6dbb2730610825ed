package core

import "fmt"

// Error is a structured error with a stable code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Cassette errors
	ErrKeyNotFound = &Error{Code: "KEY_NOT_FOUND", Message: "no value stored under key sequence"}
	ErrReadOnly    = &Error{Code: "CASSETTE_READ_ONLY", Message: "cassette is in read mode"}
	ErrWriteOnly   = &Error{Code: "CASSETTE_WRITE_ONLY", Message: "cassette is in write mode"}
	ErrCorrupt     = &Error{Code: "CASSETTE_CORRUPT", Message: "cassette file cannot be decoded"}

	// Archive errors
	ErrArtifactMissing  = &Error{Code: "ARTIFACT_MISSING", Message: "artifact path does not exist"}
	ErrArchiveMalformed = &Error{Code: "ARCHIVE_MALFORMED", Message: "archive blob cannot be decoded"}

	// Backend errors
	ErrBackendFailed = &Error{Code: "BACKEND_FAILED", Message: "storage backend operation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
