package execution

import (
	"errors"
	"fmt"
)

// transientError marks a failure as retryable. Step kinds wrap errors they
// know to be momentary (a held iptables lock, a database still starting up);
// everything else is treated as permanent and halts the plan immediately.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient: %v", e.err)
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
