package external

import (
	"context"
	"errors"
	"time"

	apperrors "kinobook/internal/errors"
)

// RetryPolicy controls retry behavior for outbound calls. Only transient
// collaborator failures are retried; domain rejections (not found,
// insufficient balance) are returned immediately. Side-effecting calls must
// carry an idempotency key so a retry after a timeout cannot double-apply.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do executes fn with retries according to the policy.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}
		if attempt == attempts || !isRetryable(err) {
			return err
		}

		delay := p.BaseDelay
		if delay > 0 {
			delay = delay << (attempt - 1)
			if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, apperrors.ErrServiceUnavailable) ||
		errors.Is(err, apperrors.ErrWalletUnavailable)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
