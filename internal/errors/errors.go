package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a rewind error code.
type ErrorCode string

const (
	ErrAcquisitionFailed   ErrorCode = "ACQUISITION_FAILED"   // start attempt failed, session stays idle
	ErrSourceTerminated    ErrorCode = "SOURCE_TERMINATED"    // capture source ended outside the app
	ErrEmptyBuffer         ErrorCode = "EMPTY_BUFFER"         // extraction declined: nothing buffered
	ErrInsufficientWindow  ErrorCode = "INSUFFICIENT_WINDOW"  // extraction declined: buffer too shallow
	ErrEncodingUnsupported ErrorCode = "ENCODING_UNSUPPORTED" // requested container unavailable, fell back
	ErrSessionActive       ErrorCode = "SESSION_ACTIVE"       // a session of this role is already running
	ErrSessionIdle         ErrorCode = "SESSION_IDLE"         // operation requires a running session
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrInternal            ErrorCode = "INTERNAL"
)

// Acquisition failure reasons, carried in Details["reason"].
const (
	ReasonPermissionDenied = "permission_denied"
	ReasonUnsupported      = "unsupported"
	ReasonOther            = "other"
)

// RewindError represents a structured error with code, status, and details.
type RewindError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *RewindError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAcquisitionFailed creates an error for a failed capture-source open.
// reason should be one of the Reason* constants.
func NewAcquisitionFailed(reason string, cause error) *RewindError {
	msg := "could not acquire capture source"
	if cause != nil {
		msg = fmt.Sprintf("could not acquire capture source: %v", cause)
	}
	return &RewindError{
		Code:    ErrAcquisitionFailed,
		Status:  403,
		Message: msg,
		Details: map[string]any{"reason": reason},
	}
}

// NewSourceTerminated creates an error for a capture source that ended
// externally (sharing revoked outside the app). Recoverable: the session
// returns to idle.
func NewSourceTerminated() *RewindError {
	return &RewindError{
		Code:    ErrSourceTerminated,
		Status:  410,
		Message: "capture source ended externally",
	}
}

// NewEmptyBuffer creates the declined-extraction result for an empty buffer.
// This is an expected outcome, not an exception; it travels as an ordinary
// return value.
func NewEmptyBuffer() *RewindError {
	return &RewindError{
		Code:    ErrEmptyBuffer,
		Status:  404,
		Message: "no data available",
	}
}

// NewInsufficientWindow creates the declined-extraction result for a buffer
// that has data, but none recent enough for the requested duration.
func NewInsufficientWindow(requested string) *RewindError {
	return &RewindError{
		Code:    ErrInsufficientWindow,
		Status:  422,
		Message: fmt.Sprintf("insufficient buffered data for requested duration %s", requested),
		Details: map[string]any{"requested": requested},
	}
}

// NewEncodingUnsupported creates a non-fatal warning for a container the
// capture source cannot produce.
func NewEncodingUnsupported(requested, fallback string) *RewindError {
	return &RewindError{
		Code:    ErrEncodingUnsupported,
		Status:  415,
		Message: fmt.Sprintf("capture source cannot produce %q; falling back to %q", requested, fallback),
		Details: map[string]any{"requested": requested, "fallback": fallback},
	}
}

// NewSessionActive creates an error for starting a second session of an
// already-active role.
func NewSessionActive(role string) *RewindError {
	return &RewindError{
		Code:    ErrSessionActive,
		Status:  409,
		Message: fmt.Sprintf("a %s session is already active", role),
		Details: map[string]any{"role": role},
	}
}

// NewSessionIdle creates an error for operations that need a running session.
func NewSessionIdle(role string) *RewindError {
	return &RewindError{
		Code:    ErrSessionIdle,
		Status:  409,
		Message: fmt.Sprintf("no active %s session", role),
		Details: map[string]any{"role": role},
	}
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *RewindError {
	return &RewindError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates an error for a clip that cannot be found.
func NewNotFound(identifier string) *RewindError {
	return &RewindError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("clip not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates an error for unexpected internal failures. The message
// stays generic; the original error goes into Details for logging.
func NewInternal(err error) *RewindError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &RewindError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a RewindError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *RewindError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}
