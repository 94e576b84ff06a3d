package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "atelier/internal/errors"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}

	assert.Equal(t, time.Duration(0), p.Backoff(0, 0.5))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1, 0.5))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2, 0.5))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(3, 0.5))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(10, 0.5))

	// jitter stays within ±20%
	assert.Equal(t, 80*time.Millisecond, p.Backoff(1, 0))
	assert.InDelta(t, float64(120*time.Millisecond), float64(p.Backoff(1, 0.9999999)), float64(time.Microsecond))
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), zap.NewNop(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesConflicts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), zap.NewNop(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("commit: %w", ErrConflict)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustedReturnsStorageConflict(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(4), zap.NewNop(), "create order", func(ctx context.Context) error {
		calls++
		return ErrConflict
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)

	sce, ok := apperrors.IsStorageConflictError(err)
	require.True(t, ok)
	assert.Equal(t, 4, sce.Attempts)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestRetry_OtherErrorsReturnImmediately(t *testing.T) {
	calls := 0
	notFound := apperrors.NewNotFoundError("customer not found")

	err := Retry(context.Background(), fastPolicy(3), zap.NewNop(), "test", func(ctx context.Context) error {
		calls++
		return notFound
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, notFound, err)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Hour}

	calls := 0
	err := Retry(ctx, policy, zap.NewNop(), "test", func(ctx context.Context) error {
		calls++
		cancel()
		return ErrConflict
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{}, zap.NewNop(), "test", func(ctx context.Context) error {
		calls++
		return ErrConflict
	})

	assert.Equal(t, 1, calls)
	_, ok := apperrors.IsStorageConflictError(err)
	assert.True(t, ok)
}
