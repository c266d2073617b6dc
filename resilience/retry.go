package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/peraturan-ai/legalrag/core"
)

// RetryPolicy configures Retry's backoff schedule and which error codes are
// eligible for another attempt.
type RetryPolicy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	Jitter          bool
	RetryableErrors []core.ErrorCode
}

// DefaultRetryPolicy returns the policy used when a zero-value RetryPolicy is
// supplied to Retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = d.BackoffFactor
	}
	return p
}

func (p RetryPolicy) isRetryable(err error) bool {
	var e *core.Error
	if !errors.As(err, &e) {
		return false
	}
	if len(p.RetryableErrors) > 0 {
		for _, code := range p.RetryableErrors {
			if e.Code == code {
				return true
			}
		}
		return false
	}
	return core.IsRetryable(err)
}

// Retry invokes fn, retrying according to policy on retryable errors with
// exponential backoff until policy.MaxAttempts is reached, fn succeeds, a
// non-retryable error is returned, or ctx is cancelled.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalize()

	var result T
	var err error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == policy.MaxAttempts || !policy.isRetryable(err) {
			return result, err
		}

		wait := backoff
		if policy.Jitter {
			wait += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * policy.BackoffFactor)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return result, err
}
