package evaluation

import (
	"context"
	"errors"
	"fmt"

	"tiervc/internal/providers"
)

// ErrorType classifies why a record evaluation failed
type ErrorType string

const (
	ErrorTypeProvider  ErrorType = "provider"
	ErrorTypeParse     ErrorType = "parse"
	ErrorTypeCancelled ErrorType = "cancelled"
	ErrorTypeTimeout   ErrorType = "timeout"
)

// EvaluationError describes the failure of a single record's pipeline
type EvaluationError struct {
	Type    ErrorType `json:"type"`
	Stage   string    `json:"stage,omitempty"`
	Startup string    `json:"startup,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *EvaluationError) Error() string {
	if e == nil {
		return "unknown evaluation error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Common batch errors
var (
	// ErrBatchInProgress is returned when a batch is started while another runs
	ErrBatchInProgress = errors.New("a batch evaluation is already in progress")

	// ErrBatchNotFound is returned for unknown batch ids
	ErrBatchNotFound = errors.New("batch not found")

	// ErrNoResults is returned when no batch has completed yet
	ErrNoResults = errors.New("no results available")
)

// NewStageError classifies err raised by stage while evaluating startup
func NewStageError(stage, startup string, err error) *EvaluationError {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr
	}

	e := &EvaluationError{
		Type:    ErrorTypeProvider,
		Stage:   stage,
		Startup: startup,
		Message: "stage failed",
		Cause:   err,
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Type = ErrorTypeTimeout
		e.Message = "stage timed out"
	case errors.Is(err, context.Canceled):
		e.Type = ErrorTypeCancelled
		e.Message = "evaluation was cancelled"
	case providers.IsParseError(err):
		e.Type = ErrorTypeParse
		e.Message = "could not parse judgment"
	}
	return e
}

// IsParseError reports whether err is a judgment parse failure
func IsParseError(err error) bool {
	return GetErrorType(err) == ErrorTypeParse
}

// IsCancelled reports whether err came from a cancelled or expired context
func IsCancelled(err error) bool {
	t := GetErrorType(err)
	return t == ErrorTypeCancelled || t == ErrorTypeTimeout
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr.Type
	}
	return ErrorTypeProvider
}
