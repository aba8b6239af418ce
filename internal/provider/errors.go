package provider

import (
	"errors"
	"fmt"
)

// TransientError marks a provider failure that is safe to retry, such as a
// rate limit or an upstream timeout.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err (or any error it wraps) is retryable.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
