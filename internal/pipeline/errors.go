package pipeline

import (
	"errors"
	"fmt"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// ValidationError marks client-fault input problems: wrong file shape,
// unsupported extension, missing payload. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	// ErrEmptySubmission is returned when a request carries no file bytes
	ErrEmptySubmission = &ValidationError{Reason: "no file submitted"}

	// ErrUnsupportedFormat is returned for extensions outside the accepted set
	ErrUnsupportedFormat = &ValidationError{Reason: "unsupported file format"}
)

// IsValidation reports whether err is a client-fault validation error
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// EngineFailure wraps an engine error together with the engine that ran,
// so logs carry the engine identity while the caller sees a generic
// failure
type EngineFailure struct {
	Engine convert.EngineKind
	Err    error
}

func (e *EngineFailure) Error() string {
	return fmt.Sprintf("engine %s failed: %v", e.Engine, e.Err)
}

func (e *EngineFailure) Unwrap() error {
	return e.Err
}
