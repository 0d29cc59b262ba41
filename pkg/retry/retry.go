// Package retry retries transient failures with jittered exponential backoff
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	apperrors "dex_trader/pkg/errors"
)

// Policy defines how to retry an operation
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy is used by pollers talking to the indexer
var DefaultPolicy = Policy{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// IsTransientFunc reports whether err is worth retrying
type IsTransientFunc func(error) bool

// IsTransient treats indexer outages, rate limits and network errors as transient
func IsTransient(err error) bool {
	return errors.Is(err, apperrors.ErrIndexerUnavailable) ||
		errors.Is(err, apperrors.ErrRateLimitExceeded) ||
		errors.Is(err, apperrors.ErrNetwork)
}

// Do runs fn until it succeeds, fails permanently or the attempts run out
func Do(ctx context.Context, policy Policy, isTransient IsTransientFunc, fn func(ctx context.Context) error) error {
	if isTransient == nil {
		isTransient = IsTransient
	}

	var err error
	backoff := policy.InitialBackoff

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt == policy.MaxAttempts-1 {
			break
		}

		// backoff plus up to 50% jitter
		sleep := backoff
		if half := int64(backoff / 2); half > 0 {
			sleep += time.Duration(rand.Int63n(half))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
			backoff = min(backoff*2, policy.MaxBackoff)
		}
	}

	return err
}
