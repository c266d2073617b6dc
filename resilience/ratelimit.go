package resilience

import (
	"context"
	"sync"
	"time"
)

// ProviderLimits bounds how aggressively a provider may be called. A zero
// value field means that dimension is unlimited.
type ProviderLimits struct {
	RPM             int
	TPM             int
	MaxConcurrent   int
	CooldownOnRetry time.Duration
}

// RateLimiter enforces requests-per-minute, tokens-per-minute, and
// concurrency limits for a single provider using token buckets.
type RateLimiter struct {
	limits ProviderLimits

	mu             sync.Mutex
	rpmTokens      float64
	tpmTokens      float64
	concurrent     int
	lastRPMRefill  time.Time
	lastTPMRefill  time.Time
}

const pollInterval = 2 * time.Millisecond

// NewRateLimiter constructs a RateLimiter for the given limits, starting
// with full token buckets.
func NewRateLimiter(limits ProviderLimits) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		limits:        limits,
		rpmTokens:     float64(limits.RPM),
		tpmTokens:     float64(limits.TPM),
		lastRPMRefill: now,
		lastTPMRefill: now,
	}
}

func (rl *RateLimiter) refillRPMLocked() {
	if rl.limits.RPM <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rl.lastRPMRefill).Seconds()
	rate := float64(rl.limits.RPM) / 60.0
	rl.rpmTokens += elapsed * rate
	if rl.rpmTokens > float64(rl.limits.RPM) {
		rl.rpmTokens = float64(rl.limits.RPM)
	}
	rl.lastRPMRefill = now
}

func (rl *RateLimiter) refillTPMLocked() {
	if rl.limits.TPM <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rl.lastTPMRefill).Seconds()
	rate := float64(rl.limits.TPM) / 60.0
	rl.tpmTokens += elapsed * rate
	if rl.tpmTokens > float64(rl.limits.TPM) {
		rl.tpmTokens = float64(rl.limits.TPM)
	}
	rl.lastTPMRefill = now
}

// Allow blocks until an RPM token and a concurrency slot are both available,
// or ctx is done. Callers that acquire a concurrency slot must call Release
// when the request completes.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	if err := rl.waitRPM(ctx); err != nil {
		return err
	}
	return rl.waitConcurrency(ctx)
}

func (rl *RateLimiter) waitRPM(ctx context.Context) error {
	if rl.limits.RPM <= 0 {
		return nil
	}
	for {
		rl.mu.Lock()
		rl.refillRPMLocked()
		if rl.rpmTokens >= 1 {
			rl.rpmTokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (rl *RateLimiter) waitConcurrency(ctx context.Context) error {
	if rl.limits.MaxConcurrent <= 0 {
		return nil
	}
	for {
		rl.mu.Lock()
		if rl.concurrent < rl.limits.MaxConcurrent {
			rl.concurrent++
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release frees a concurrency slot acquired by Allow.
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.concurrent > 0 {
		rl.concurrent--
	}
}

// Wait blocks for the provider's configured cooldown, used after a retryable
// failure before the next attempt.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limits.CooldownOnRetry <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(rl.limits.CooldownOnRetry):
		return nil
	}
}

// ConsumeTokens blocks until count tokens are available in the TPM budget,
// or ctx is done. count == 0 or an unlimited TPM budget returns immediately.
func (rl *RateLimiter) ConsumeTokens(ctx context.Context, count int) error {
	if rl.limits.TPM <= 0 || count <= 0 {
		return nil
	}
	need := float64(count)
	for {
		rl.mu.Lock()
		rl.refillTPMLocked()
		if rl.tpmTokens >= need {
			rl.tpmTokens -= need
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
