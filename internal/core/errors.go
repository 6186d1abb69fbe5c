package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeUnauthorized   = "unauthorized"
)

var (
	// ErrSessionClosed is returned when a command arrives after the session closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownCommand is returned for command kinds the session does not handle.
	ErrUnknownCommand = errors.New("unknown command")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
