package domain

import "errors"

// Common domain errors
var (
	// Statistics errors
	ErrEmptyInput = errors.New("at least one sample is required")

	// Evaluation errors
	ErrExecutorUnavailable = errors.New("executor unavailable")
	ErrExecutionFailed     = errors.New("execution failed")
	ErrTimeout             = errors.New("execution timed out")
	ErrHardFailure         = errors.New("candidate could not be evaluated")

	// Store errors
	ErrStoreUnavailable = errors.New("analytics store unavailable")
	ErrNotFound         = errors.New("resource not found")

	// Scheduler errors
	ErrEmptyPopulation = errors.New("population is empty")
	ErrMissingProblem  = errors.New("problem is missing")
	ErrUnknownStrategy = errors.New("unknown scheduling strategy")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidInput  = errors.New("invalid input")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}
