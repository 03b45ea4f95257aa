package domain

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned when a job id has no persisted record
var ErrJobNotFound = errors.New("job not found")

// ErrInvalidState is returned for operations that the current job status forbids
var ErrInvalidState = errors.New("invalid job state")

// StageError marks a failure inside one pipeline stage. The orchestrator
// converts it into a FAILED job with the message preserved verbatim.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage it occurred in
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// TransientError marks a storage or network failure that is safe to retry
// a bounded number of times inside the I/O layer.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable at the I/O layer
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// FatalMediaError marks unreadable or zero-duration input. Never retried.
type FatalMediaError struct {
	Path   string
	Reason string
}

func (e *FatalMediaError) Error() string {
	return fmt.Sprintf("unusable media %s: %s", e.Path, e.Reason)
}

// IsFatalMedia reports whether err came from unusable input media
func IsFatalMedia(err error) bool {
	var fe *FatalMediaError
	return errors.As(err, &fe)
}
