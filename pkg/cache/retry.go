package cache

import (
	"context"
	"errors"
	"net"
	"time"
)

// Backoff retries backend calls that fail with a transient error.
type Backoff struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Delay is the pause after the first failure. It doubles per attempt.
	Delay time.Duration
}

// DefaultBackoff is the policy of remote backends.
var DefaultBackoff = Backoff{Attempts: 3, Delay: 200 * time.Millisecond}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying. Transient(nil) is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// transientNet marks network failures as transient.
func transientNet(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient(err)
	}
	return err
}

// Do calls fn until it succeeds, fails permanently, or the attempts run out.
// The last error is returned.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var err error

	for i := range attempts {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}
