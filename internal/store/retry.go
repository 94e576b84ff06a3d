package store

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	apperrors "atelier/internal/errors"
)

type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	}
}

// Backoff returns the wait before retry number attempt (1-based): the base
// doubled per attempt, capped, with ±20% jitter taken from r in [0,1).
func (p RetryPolicy) Backoff(attempt int, r float64) time.Duration {
	if attempt < 1 || p.BaseBackoff <= 0 {
		return 0
	}
	base := p.BaseBackoff << (attempt - 1)
	if p.MaxBackoff > 0 && (base > p.MaxBackoff || base <= 0) {
		base = p.MaxBackoff
	}
	factor := 0.8 + r*0.4
	return time.Duration(float64(base) * factor)
}

// Retry calls fn until it succeeds, fails with something other than
// ErrConflict, or the policy runs out of attempts. Exhaustion is reported as
// a StorageConflictError.
func Retry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		wait := policy.Backoff(attempt, rand.Float64())
		logger.Warn("transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Duration("backoff", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return apperrors.NewStorageConflictError(op+" aborted", maxAttempts, lastErr)
}
