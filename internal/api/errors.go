package api

import "fmt"

// ValidationError is the one error kind the preprocessor, decoder, and
// initial placement raise. It carries a free-form, human-readable message;
// callers are not expected to branch on anything finer-grained than "this
// input was rejected" (spec §7).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError from a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
