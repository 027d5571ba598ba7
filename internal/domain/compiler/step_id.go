package compiler

import (
	"errors"
	"regexp"
	"strings"
)

// StepID uniquely identifies a step. Because steps map 1:1 onto resources,
// the ID is the resource identity key: "kind:name"
// (e.g. "sysctl:net.ipv4.ip_forward", "file:/etc/netplan/60-lan.yaml").
type StepID struct {
	value string
}

// Errors for StepID validation.
var (
	ErrEmptyStepID   = errors.New("step ID cannot be empty")
	ErrInvalidStepID = errors.New("step ID format invalid: must be kind:name without shell metacharacters")
)

// stepIDPattern validates step ID format. The name segment may carry dots,
// slashes, a leading slash, and interior spaces so sysctl keys, absolute
// paths (including ones with spaces), and free-form rule names are legal.
var stepIDPattern = regexp.MustCompile(`^[a-z][a-z0-9]*:[a-zA-Z0-9_./@-][a-zA-Z0-9_./@: -]*$`)

// NewStepID creates a new StepID from a string.
func NewStepID(value string) (StepID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StepID{}, ErrEmptyStepID
	}
	if !stepIDPattern.MatchString(trimmed) {
		return StepID{}, ErrInvalidStepID
	}
	return StepID{value: trimmed}, nil
}

// MustNewStepID creates a new StepID from a string, panicking on error.
// Use this for values already validated by the manifest loader.
func MustNewStepID(value string) StepID {
	id, err := NewStepID(value)
	if err != nil {
		panic("invalid step ID: " + value + ": " + err.Error())
	}
	return id
}

// String returns the string representation.
func (id StepID) String() string {
	return id.value
}

// Equals checks equality with another StepID.
func (id StepID) Equals(other StepID) bool {
	return id.value == other.value
}

// Kind extracts the resource kind (first segment).
func (id StepID) Kind() string {
	parts := strings.SplitN(id.value, ":", 2)
	return parts[0]
}

// Name extracts the resource name (everything after the kind).
func (id StepID) Name() string {
	parts := strings.SplitN(id.value, ":", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// IsZero returns true if this is a zero-value StepID.
func (id StepID) IsZero() bool {
	return id.value == ""
}
