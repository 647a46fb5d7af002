package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// BackendError wraps a failed backend call and classifies it for the retry
// policy. Transient failures (backend unavailable, rate limited, timed out)
// are retried with backoff; permanent failures (authorization, malformed
// request) are recorded failed on the first attempt.
type BackendError struct {
	Backend   string
	Transient bool
	Err       error
}

func (e *BackendError) Error() string {
	class := "permanent"
	if e.Transient {
		class = "transient"
	}
	return fmt.Sprintf("%s backend error (%s): %v", e.Backend, class, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable backend failure.
func Transient(backend string, err error) error {
	return &BackendError{Backend: backend, Transient: true, Err: err}
}

// Permanent wraps err as a non-retryable backend failure.
func Permanent(backend string, err error) error {
	return &BackendError{Backend: backend, Transient: false, Err: err}
}

// IsTransient classifies an error from a backend call. Call timeouts count as
// transient. Unclassified errors default to transient, mirroring how backends
// that predate the taxonomy behave; only an explicit Permanent marks an error
// unretryable.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient
	}
	return true
}
