package errors

import (
	"fmt"
	"testing"
)

func TestTallyError_Error(t *testing.T) {
	err := &TallyError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "evaluation not found",
	}

	expected := "NOT_FOUND: evaluation not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConsecutiveSeparators(t *testing.T) {
	err := NewConsecutiveSeparators()

	if err.Code != ErrConsecutiveSeparators {
		t.Errorf("Code = %q, want %q", err.Code, ErrConsecutiveSeparators)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
}

func TestNewInvalidInput(t *testing.T) {
	err := NewInvalidInput("custom separator header is incomplete")

	if err.Code != ErrInvalidInput {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidInput)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "custom separator header is incomplete" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNaN(t *testing.T) {
	err := NewNaN("abc")

	if err.Code != ErrNaN {
		t.Errorf("Code = %q, want %q", err.Code, ErrNaN)
	}
	if err.Details["token"] != "abc" {
		t.Errorf("Details[token] = %v, want %q", err.Details["token"], "abc")
	}
}

func TestNewHasNegative(t *testing.T) {
	err := NewHasNegative([]int64{-2, -3})

	if err.Code != ErrHasNegative {
		t.Errorf("Code = %q, want %q", err.Code, ErrHasNegative)
	}
	if len(err.Negatives) != 2 || err.Negatives[0] != -2 || err.Negatives[1] != -3 {
		t.Errorf("Negatives = %v, want [-2 -3]", err.Negatives)
	}
	if got, ok := err.Details["negatives"].([]int64); !ok || len(got) != 2 {
		t.Errorf("Details[negatives] = %v, want [-2 -3]", err.Details["negatives"])
	}
	if err.Message != "input has negative numbers: [-2 -3]" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HX")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01HX" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HX")
	}
}

func TestNewInputTooLarge(t *testing.T) {
	err := NewInputTooLarge(10, 15)

	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_chars"] != 10 {
		t.Errorf("Details[max_chars] = %v, want 10", err.Details["max_chars"])
	}
	if err.Details["actual_chars"] != 15 {
		t.Errorf("Details[actual_chars] = %v, want 15", err.Details["actual_chars"])
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want generic message", err.Message)
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %v", err.Details["internal_error"])
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIsCalculation(t *testing.T) {
	for _, code := range []ErrorCode{ErrConsecutiveSeparators, ErrInvalidInput, ErrNaN, ErrHasNegative} {
		if !IsCalculation(code) {
			t.Errorf("IsCalculation(%s) = false, want true", code)
		}
	}
	for _, code := range []ErrorCode{ErrInvalidRequest, ErrNotFound, ErrInputTooLarge, ErrInternal} {
		if IsCalculation(code) {
			t.Errorf("IsCalculation(%s) = true, want false", code)
		}
	}
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNaN("x"), ErrNaN) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNaN("x"), ErrHasNegative) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-TallyError", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-TallyError")
		}
	})

	t.Run("wrapped TallyError", func(t *testing.T) {
		wrapped := fmt.Errorf("block 2: %w", NewHasNegative([]int64{-1}))
		if !Is(wrapped, ErrHasNegative) {
			t.Error("Is() = false, want true for wrapped TallyError")
		}
		tErr, ok := As(wrapped)
		if !ok || tErr.Negatives[0] != -1 {
			t.Errorf("As() = %v, %v", tErr, ok)
		}
	})
}
