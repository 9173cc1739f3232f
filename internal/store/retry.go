package store

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Reads are retried with jittered exponential backoff because point gets and
// queries are idempotent. Writes never come through here: an unconditional
// put retried blindly is mostly harmless but a conditional-write failure is a
// real answer, so writes surface their first error as-is.
const (
	readRetryAttempts  = 3
	readRetryBaseDelay = 100 * time.Millisecond
)

func withReadRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < readRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := readRetryBaseDelay << (attempt - 1)
			delay += time.Duration(rand.Int63n(int64(delay)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
