package generate

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ProviderError wraps provider failures with status metadata so the
// pipeline can decide whether a retry is worthwhile.
type ProviderError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider error (status=%d)", e.Status)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry. Timeouts, rate
// limits, and server-side failures are transient; cancellation and
// client-side errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr.Temporary {
			return true
		}
		if perr.Status == 429 || (perr.Status >= 500 && perr.Status <= 599) {
			return true
		}
	}
	return false
}
