package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/retry"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

// Retrying runs a Provider under a retry policy and a per-attempt timeout.
type Retrying struct {
	inner   Provider
	policy  retry.Policy
	timeout time.Duration
	sleep   retry.Sleeper
	logger  *zap.Logger
}

func NewRetrying(p Provider, policy retry.Policy, timeout time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		inner:   p,
		policy:  policy,
		timeout: timeout,
		sleep:   retry.Sleep,
		logger:  logger.Named("provider").With(zap.String("provider", p.Name())),
	}
}

// WithSleeper replaces the backoff sleeper (tests).
func (r *Retrying) WithSleeper(s retry.Sleeper) *Retrying {
	r.sleep = s
	return r
}

func (r *Retrying) Name() string { return r.inner.Name() }

// Reply returns a reply or false once the policy is exhausted or ctx is done.
// Empty replies count as failed attempts.
func (r *Retrying) Reply(ctx context.Context, history []thread.Turn, systemRules, userMessage string) (string, bool) {
	observe := func(attempt int, err error) {
		r.logger.Warn("provider attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.policy.MaxRetries+1),
			zap.Error(err))
	}
	return retry.DoWith(ctx, r.policy, r.sleep, observe, func(ctx context.Context) (string, error) {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		return r.inner.Generate(ctx, history, systemRules, userMessage)
	})
}
