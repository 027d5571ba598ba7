package manifest

import (
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodeManifestNotFound  = "MANIFEST_NOT_FOUND"
	ErrCodeManifestParse     = "MANIFEST_PARSE"
	ErrCodeManifestInvalid   = "MANIFEST_INVALID"
	ErrCodeDuplicateResource = "DUPLICATE_RESOURCE"
	ErrCodeUnknownKind       = "UNKNOWN_KIND"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
)

// Error represents a manifest problem with actionable context. All manifest
// errors are fatal before any step executes; fixing the input fully recovers.
type Error struct {
	Code       string // Error code for categorization (e.g., "MANIFEST_PARSE")
	Message    string // User-friendly error message
	Context    string // File path, resource key, or other location context
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}
	return b.String()
}

// NewDuplicateResourceError reports two declarations of the same identity key.
func NewDuplicateResourceError(key string) *Error {
	return &Error{
		Code:       ErrCodeDuplicateResource,
		Message:    fmt.Sprintf("resource %q is declared more than once", key),
		Context:    key,
		Suggestion: "Each (kind, name) pair must appear exactly once per manifest. Merge the duplicate declarations.",
	}
}

// NewUnknownKindError reports an unsupported resource kind.
func NewUnknownKindError(kind, name string) *Error {
	return &Error{
		Code:       ErrCodeUnknownKind,
		Message:    fmt.Sprintf("unknown resource kind %q", kind),
		Context:    kind + ":" + name,
		Suggestion: "Supported kinds: netif, sysctl, firewall, service, database, file.",
	}
}

// NewParseError reports a malformed manifest document.
func NewParseError(path string, err error) *Error {
	return &Error{
		Code:       ErrCodeManifestParse,
		Message:    "manifest could not be parsed",
		Context:    path,
		Suggestion: "Check the document syntax. YAML manifests use .yaml/.yml, TOML manifests use .toml.",
		Underlying: err,
	}
}

// NewNotFoundError reports a missing manifest file.
func NewNotFoundError(path string) *Error {
	return &Error{
		Code:       ErrCodeManifestNotFound,
		Message:    "manifest file not found",
		Context:    path,
		Suggestion: "Pass the manifest path with --manifest or create one in the working directory.",
	}
}

// NewInvalidError reports a structurally invalid manifest.
func NewInvalidError(context, message string) *Error {
	return &Error{
		Code:    ErrCodeManifestInvalid,
		Message: message,
		Context: context,
	}
}
