package compiler

import (
	"fmt"
	"strings"
)

// Error codes for compiler and execution operations.
const (
	ErrCodeProviderFailed    = "PROVIDER_FAILED"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeStepDuplicate     = "STEP_DUPLICATE"
	ErrCodeDependencyMissing = "DEPENDENCY_MISSING"
	ErrCodeCyclicDependency  = "CYCLIC_DEPENDENCY"
	ErrCodeCheckFailed       = "CHECK_FAILED"
	ErrCodeApplyFailed       = "APPLY_FAILED"
	ErrCodeVerifyFailed      = "VERIFY_FAILED"
)

// StepError is a user-facing error with an actionable suggestion. The code
// decides the CLI exit code: compile-time codes mean nothing was attempted.
type StepError struct {
	Code       string // Error code for categorization
	Message    string // User-friendly error message
	StepID     string // Step ID if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %q: %s", e.StepID, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *StepError) Is(target error) bool {
	if t, ok := target.(*StepError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *StepError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.StepID != "" {
		fmt.Fprintf(&b, "\n  Step: %s", e.StepID)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}
	return b.String()
}

// IsCompileError reports whether the code belongs to the compile phase,
// meaning no step was attempted and the host was not touched.
func (e *StepError) IsCompileError() bool {
	switch e.Code {
	case ErrCodeProviderFailed, ErrCodeValidationFailed, ErrCodeStepDuplicate,
		ErrCodeDependencyMissing, ErrCodeCyclicDependency:
		return true
	}
	return false
}

// NewProviderFailedError creates an error for provider compilation failure.
func NewProviderFailedError(provider string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeProviderFailed,
		Message:    fmt.Sprintf("provider %q failed to compile steps", provider),
		Suggestion: fmt.Sprintf("Check the %s resources in your manifest for missing or malformed fields.", provider),
		Underlying: err,
	}
}

// NewValidationError creates an error for invalid resource attributes.
func NewValidationError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeValidationFailed,
		Message:    "resource attributes are invalid",
		StepID:     stepID,
		Suggestion: "Fix the attribute values in the manifest; nothing was applied.",
		Underlying: err,
	}
}

// NewStepDuplicateError creates an error for duplicate step ID.
func NewStepDuplicateError(stepID string) *StepError {
	return &StepError{
		Code:       ErrCodeStepDuplicate,
		Message:    "step with this ID already exists in the graph",
		StepID:     stepID,
		Suggestion: "Each (kind, name) pair must appear exactly once per manifest.",
	}
}

// NewDependencyMissingError creates an error for a missing step dependency.
func NewDependencyMissingError(stepID, dependsOn string) *StepError {
	return &StepError{
		Code:       ErrCodeDependencyMissing,
		Message:    fmt.Sprintf("step depends on %q which does not exist", dependsOn),
		StepID:     stepID,
		Suggestion: "Declare the missing resource or remove the depends_on entry.",
	}
}

// NewCyclicDependencyError creates an error for cyclic dependencies.
func NewCyclicDependencyError(err error) *StepError {
	return &StepError{
		Code:       ErrCodeCyclicDependency,
		Message:    "dependency graph contains a cycle",
		Suggestion: "Review the depends_on entries of the listed steps to break the circular chain.",
		Underlying: err,
	}
}

// NewApplyFailedError creates an error for step apply failure.
func NewApplyFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeApplyFailed,
		Message:    "step failed to apply",
		StepID:     stepID,
		Suggestion: "Fix the underlying cause and re-run apply; converged steps will be skipped.",
		Underlying: err,
	}
}

// NewCheckFailedError creates an error for step status check failure.
func NewCheckFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeCheckFailed,
		Message:    "step status check failed",
		StepID:     stepID,
		Suggestion: "The step could not determine its current status. This may be a transient error.",
		Underlying: err,
	}
}

// NewVerifyFailedError creates an error for a post-apply verification failure:
// apply reported success but the live system still does not match.
func NewVerifyFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeVerifyFailed,
		Message:    "applied but live state does not match desired state",
		StepID:     stepID,
		Suggestion: "Inspect the host manually; another agent may be fighting this resource.",
		Underlying: err,
	}
}
