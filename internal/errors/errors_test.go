package errors

import (
	"fmt"
	"testing"
)

func TestRewindError_Error(t *testing.T) {
	err := &RewindError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "clip not found",
	}

	expected := "NOT_FOUND: clip not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewAcquisitionFailed(t *testing.T) {
	err := NewAcquisitionFailed(ReasonPermissionDenied, fmt.Errorf("portal dialog dismissed"))

	if err.Code != ErrAcquisitionFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrAcquisitionFailed)
	}
	if err.Details["reason"] != ReasonPermissionDenied {
		t.Errorf("Details[reason] = %v, want %q", err.Details["reason"], ReasonPermissionDenied)
	}
}

func TestNewSourceTerminated(t *testing.T) {
	err := NewSourceTerminated()

	if err.Code != ErrSourceTerminated {
		t.Errorf("Code = %q, want %q", err.Code, ErrSourceTerminated)
	}
	if err.Status != 410 {
		t.Errorf("Status = %d, want 410", err.Status)
	}
}

func TestExtractionOutcomes_AreDistinct(t *testing.T) {
	empty := NewEmptyBuffer()
	thin := NewInsufficientWindow("3m")

	if empty.Code == thin.Code {
		t.Error("EMPTY_BUFFER and INSUFFICIENT_WINDOW must be distinct codes")
	}
	if thin.Details["requested"] != "3m" {
		t.Errorf("Details[requested] = %v, want %q", thin.Details["requested"], "3m")
	}
}

func TestNewEncodingUnsupported(t *testing.T) {
	err := NewEncodingUnsupported("video/x-matroska", "video/webm")

	if err.Code != ErrEncodingUnsupported {
		t.Errorf("Code = %q, want %q", err.Code, ErrEncodingUnsupported)
	}
	if err.Details["fallback"] != "video/webm" {
		t.Errorf("Details[fallback] = %v, want %q", err.Details["fallback"], "video/webm")
	}
}

func TestNewSessionActive(t *testing.T) {
	err := NewSessionActive("background")

	if err.Code != ErrSessionActive {
		t.Errorf("Code = %q, want %q", err.Code, ErrSessionActive)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["role"] != "background" {
		t.Errorf("Details[role] = %v, want %q", err.Details["role"], "background")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("sqlite disk I/O error")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "sqlite disk I/O error" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "sqlite disk I/O error")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewEmptyBuffer()
		if !Is(err, ErrEmptyBuffer) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewEmptyBuffer()
		if Is(err, ErrInsufficientWindow) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-RewindError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-RewindError")
		}
	})

	t.Run("wrapped RewindError", func(t *testing.T) {
		inner := NewNotFound("clip")
		wrapped := fmt.Errorf("archive: %w", inner)
		if !Is(wrapped, ErrNotFound) {
			t.Error("Is() = false, want true for wrapped RewindError")
		}
		if Is(wrapped, ErrInternal) {
			t.Error("Is() = true, want false for wrong code on wrapped RewindError")
		}
	})
}
