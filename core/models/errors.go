package models

import "fmt"

// ErrorKind classifies pipeline failures for retry and reporting decisions
type ErrorKind string

const (
	ErrInputData  ErrorKind = "input_data"
	ErrAssessment ErrorKind = "assessment"
	ErrTimeout    ErrorKind = "timeout"
	ErrGeometry   ErrorKind = "geometry"
	ErrCancelled  ErrorKind = "cancelled"
)

// PipelineError is a structured error carried on a job. Stage-local
// failures are wrapped in one of these at the state machine boundary so
// the report can say what failed and whether a retry was worthwhile.
type PipelineError struct {
	Kind      ErrorKind
	Stage     string
	Message   string
	Retryable bool
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s error in %s stage: %s", e.Kind, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewInputDataError reports missing or invalid required inputs. Never retried.
func NewInputDataError(stage, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: ErrInputData, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// NewAssessmentError reports a computation fault from the assessment model.
func NewAssessmentError(stage string, retryable bool, cause error) *PipelineError {
	return &PipelineError{Kind: ErrAssessment, Stage: stage, Message: cause.Error(), Retryable: retryable, Cause: cause}
}

// NewTimeoutError reports the assessment model exceeding its time bound.
// Always retryable, with backoff.
func NewTimeoutError(stage string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrTimeout, Stage: stage, Message: cause.Error(), Retryable: true, Cause: cause}
}

// NewGeometryError reports an invalid basin polygon during rasterization.
func NewGeometryError(format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: ErrGeometry, Message: fmt.Sprintf(format, args...)}
}

// NewCancelledError reports an operator-initiated abort.
func NewCancelledError(stage string) *PipelineError {
	return &PipelineError{Kind: ErrCancelled, Stage: stage, Message: "batch cancelled"}
}

// AsPipelineError normalizes an arbitrary error into a PipelineError,
// defaulting to a non-retryable assessment fault for unclassified errors.
func AsPipelineError(stage string, err error) *PipelineError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PipelineError); ok {
		if pe.Stage == "" {
			pe.Stage = stage
		}
		return pe
	}
	return &PipelineError{Kind: ErrAssessment, Stage: stage, Message: err.Error(), Cause: err}
}
