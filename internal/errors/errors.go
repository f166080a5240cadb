package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tally error code.
type ErrorCode string

const (
	// Calculation errors
	ErrConsecutiveSeparators ErrorCode = "CONSECUTIVE_SEPARATORS" // 422
	ErrInvalidInput          ErrorCode = "INVALID_INPUT"          // 400
	ErrNaN                   ErrorCode = "NAN"                    // 422
	ErrHasNegative           ErrorCode = "HAS_NEGATIVE"           // 422

	// Request and storage errors
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInputTooLarge  ErrorCode = "INPUT_TOO_LARGE" // 413
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// TallyError represents a structured error with code, status, and details.
type TallyError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Negatives is set for ErrHasNegative, in input order.
	Negatives []int64
}

// Error implements the error interface.
func (e *TallyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConsecutiveSeparators creates a 422 error for two separators with nothing between them.
func NewConsecutiveSeparators() *TallyError {
	return &TallyError{
		Code:    ErrConsecutiveSeparators,
		Status:  422,
		Message: "consecutive separators detected",
	}
}

// NewInvalidInput creates a 400 error for a malformed custom separator header.
func NewInvalidInput(msg string) *TallyError {
	return &TallyError{
		Code:    ErrInvalidInput,
		Status:  400,
		Message: msg,
	}
}

// NewNaN creates a 422 error for a token that is not an integer.
func NewNaN(token string) *TallyError {
	return &TallyError{
		Code:    ErrNaN,
		Status:  422,
		Message: fmt.Sprintf("not a number: %q", token),
		Details: map[string]any{"token": token},
	}
}

// NewHasNegative creates a 422 error carrying every negative number found.
func NewHasNegative(negatives []int64) *TallyError {
	return &TallyError{
		Code:      ErrHasNegative,
		Status:    422,
		Message:   fmt.Sprintf("input has negative numbers: %v", negatives),
		Details:   map[string]any{"negatives": negatives},
		Negatives: negatives,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TallyError {
	return &TallyError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when an evaluation cannot be found.
func NewNotFound(identifier string) *TallyError {
	return &TallyError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("evaluation not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInputTooLarge creates a 413 error when input exceeds the configured limit.
func NewInputTooLarge(max, actual int) *TallyError {
	return &TallyError{
		Code:    ErrInputTooLarge,
		Status:  413,
		Message: fmt.Sprintf("input exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *TallyError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &TallyError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// IsCalculation reports whether code comes from the calculator itself
// rather than from the request or storage layers.
func IsCalculation(code ErrorCode) bool {
	switch code {
	case ErrConsecutiveSeparators, ErrInvalidInput, ErrNaN, ErrHasNegative:
		return true
	}
	return false
}

// As returns the TallyError in err's chain, if any.
func As(err error) (*TallyError, bool) {
	var tErr *TallyError
	if stderrors.As(err, &tErr) {
		return tErr, true
	}
	return nil, false
}

// Is checks if an error is a TallyError with the given code.
func Is(err error, code ErrorCode) bool {
	if tErr, ok := As(err); ok {
		return tErr.Code == code
	}
	return false
}
