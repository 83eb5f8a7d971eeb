package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/metrics"
)

// DefaultRetries is the retry budget applied when none is configured.
const DefaultRetries = 15

// RetryPolicy bounds the attempts of a single RPC call.
type RetryPolicy struct {
	// Retries is the number of retries after the first attempt.
	Retries        int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used by the CLI when flags are unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:        DefaultRetries,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

func withRetry(ctx context.Context, policy RetryPolicy, op string, logger *zap.Logger, fn func(context.Context) error) error {
	retries := policy.Retries
	if retries < 0 {
		retries = 0
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 1; ; attempt++ {
		err := runAttempt(ctx, policy.AttemptTimeout, fn)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt > retries {
			metrics.ObserveRetry(op, true)
			return &TransientFetchError{Op: op, Attempts: attempt, Err: err}
		}

		metrics.ObserveRetry(op, false)
		logger.Warn("attempt failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retries+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
