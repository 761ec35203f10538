package orchestrator

import (
	"context"
	"math"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
)

// Policy bounds how often a single provider is retried and how long to wait between attempts.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy is two retries, 500ms doubling up to 4s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: domain.DefaultMaxRetries,
		BaseDelay:  domain.DefaultBaseDelay,
		MaxDelay:   domain.DefaultMaxDelay,
	}
}

// PolicyFromSettings fills unset fields with defaults.
func PolicyFromSettings(s domain.RetrySettings) Policy {
	p := DefaultPolicy()
	p.MaxRetries = max(s.MaxRetries, 0)
	if s.BaseDelay > 0 {
		p.BaseDelay = s.BaseDelay
	}
	if s.MaxDelay > 0 {
		p.MaxDelay = s.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay is the wait after the given zero-based attempt: min(base * 2^attempt, max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt && d > 0 && d <= math.MaxInt64/2; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithRetry runs fn until it succeeds, fails fatally, or has been tried MaxRetries+1 times.
// It returns the last result and the number of attempts made.
func WithRetry(ctx context.Context, p Policy, sleep Sleeper, fn func(ctx context.Context, attempt int) domain.ProviderResult) (domain.ProviderResult, int) {
	if sleep == nil {
		sleep = sleepContext
	}
	maxRetries := max(p.MaxRetries, 0)

	var res domain.ProviderResult
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res = fn(ctx, attempt)
		if !res.Retryable() {
			return res, attempt + 1
		}
		if attempt == maxRetries {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return res, attempt + 1
		}
	}
	return res, maxRetries + 1
}
