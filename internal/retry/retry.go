// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// MaxDelay caps a single wait between attempts.
const MaxDelay = 5 * time.Minute

// Policy bounds a retried call. MaxRetries counts retries, so an operation
// runs at most MaxRetries+1 times.
type Policy struct {
	MaxRetries int           `json:"maxRetries"`
	BaseDelay  time.Duration `json:"baseDelay"`
}

// backOff yields BaseDelay, 2*BaseDelay, 4*BaseDelay ... without jitter,
// saturating at MaxDelay.
func (p Policy) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     min(max(p.BaseDelay, 0), MaxDelay),
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         MaxDelay,
	}
}

// Delay returns the wait before retry i (0-based): BaseDelay * 2^i, capped
// at MaxDelay.
func (p Policy) Delay(i int) time.Duration {
	b := p.backOff()
	d := b.NextBackOff()
	for ; i > 0 && d < MaxDelay && d > 0; i-- {
		d = b.NextBackOff()
	}
	return d
}

// Sleeper waits for d or until ctx is done. It reports false when the wait
// was cut short by cancellation.
type Sleeper func(ctx context.Context, d time.Duration) bool

// Observer is told about every failed attempt.
type Observer func(attempt int, err error)

// Do runs op until it succeeds or the policy is exhausted. Failures are
// converted into absence of result: the zero value and false.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, bool) {
	return DoWith(ctx, p, Sleep, nil, op)
}

// DoWith is Do with an explicit sleeper and failure observer.
func DoWith[T any](ctx context.Context, p Policy, sleep Sleeper, observe Observer, op func(context.Context) (T, error)) (T, bool) {
	var zero T
	if sleep == nil {
		sleep = Sleep
	}
	b := p.backOff()
	retries := max(p.MaxRetries, 0)
	for attempt := 0; attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			return zero, false
		}
		v, err := op(ctx)
		if err == nil {
			return v, true
		}
		if observe != nil {
			observe(attempt, err)
		}
		if attempt == retries {
			break
		}
		if !sleep(ctx, b.NextBackOff()) {
			return zero, false
		}
	}
	return zero, false
}

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
