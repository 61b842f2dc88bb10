// Package storeop runs store round-trips under a bounded timeout and retries
// infrastructure failures once before giving up.
package storeop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrUnavailable marks a store failure that survived the retry. It never
// stands for an authentication decision.
var ErrUnavailable = errors.New("upstream unavailable")

const (
	DefaultTimeout    = 2 * time.Second
	DefaultRetryDelay = 50 * time.Millisecond
)

type Policy struct {
	Timeout    time.Duration // per attempt
	RetryDelay time.Duration // pause before the single retry
}

func (p Policy) normalize() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	return p
}

// Do runs op, retrying once when it fails with anything other than one of
// the expected errors. Expected errors are returned untouched; everything
// else comes back wrapped in ErrUnavailable.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, expected ...error) error {
	p = p.normalize()

	isExpected := func(err error) bool {
		for _, e := range expected {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}

	backoff := retry.WithMaxRetries(1, retry.NewConstant(p.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		err := op(attemptCtx)
		if err == nil || isExpected(err) {
			return err
		}
		return retry.RetryableError(err)
	})

	if err == nil || isExpected(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
