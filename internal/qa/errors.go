package qa

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when request validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrGenerationUnavailable is returned when the completion model keeps
	// failing transiently and retries are exhausted.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrTimeout is returned when the pipeline deadline expires mid-run.
	ErrTimeout = errors.New("query timeout")
)

// Stage names one step of the answer pipeline.
type Stage string

const (
	StageRetrieving Stage = "retrieving"
	StageAssembling Stage = "assembling"
	StageGenerating Stage = "generating"
	StageExtracting Stage = "extracting"
	StageVerifying  Stage = "verifying"
)

// StageError records which pipeline stage an error occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
