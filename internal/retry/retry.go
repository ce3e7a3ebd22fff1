package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Policy bounds the exponential backoff. Zero fields fall back to defaults.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Observer receives retry events, e.g. for metrics.
type Observer interface {
	ObserveRetry(label string, attempt int, delay time.Duration)
	ObserveExhausted(label string, attempts int)
}

// Retrier runs fallible operations with bounded exponential backoff.
// It never classifies errors: every failure is retried until attempts run out.
type Retrier struct {
	policy   Policy
	logger   *slog.Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// New builds a Retrier; logger and observer may be nil.
func New(policy Policy, logger *slog.Logger, observer Observer) *Retrier {
	return &Retrier{
		policy:   policy.withDefaults(),
		logger:   logger,
		observer: observer,
		sleep:    sleepContext,
	}
}

// With returns a copy using the given policy; zero fields keep the receiver's values.
func (r *Retrier) With(policy Policy) *Retrier {
	clone := *r.orDefault()
	if policy.MaxAttempts > 0 {
		clone.policy.MaxAttempts = policy.MaxAttempts
	}
	if policy.BaseDelay > 0 {
		clone.policy.BaseDelay = policy.BaseDelay
	}
	if policy.MaxDelay > 0 {
		clone.policy.MaxDelay = policy.MaxDelay
	}
	return &clone
}

// Policy exposes the effective policy.
func (r *Retrier) Policy() Policy {
	return r.orDefault().policy
}

// Run is Do for operations without a result.
func (r *Retrier) Run(ctx context.Context, label string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, r, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do invokes op until it succeeds or the policy's attempts are used up.
// The error of the final attempt is returned as-is.
func Do[T any](ctx context.Context, r *Retrier, label string, op func(ctx context.Context) (T, error)) (T, error) {
	r = r.orDefault()

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= r.policy.MaxAttempts {
			r.log(ctx, slog.LevelError, "all retry attempts exhausted", "label", label, "attempt", attempt, "error", err)
			if r.observer != nil {
				r.observer.ObserveExhausted(label, attempt)
			}
			return zero, err
		}

		delay := r.policy.Delay(attempt)
		r.log(ctx, slog.LevelWarn, "retrying after failure", "label", label, "attempt", attempt, "delay", delay, "error", err)
		if r.observer != nil {
			r.observer.ObserveRetry(label, attempt, delay)
		}

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return zero, errors.Join(sleepErr, err)
		}
	}
}

func (r *Retrier) orDefault() *Retrier {
	if r == nil {
		return New(Policy{}, nil, nil)
	}
	if r.sleep == nil {
		clone := *r
		clone.sleep = sleepContext
		return &clone
	}
	return r
}

func (r *Retrier) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if r.logger != nil {
		r.logger.Log(ctx, level, msg, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
