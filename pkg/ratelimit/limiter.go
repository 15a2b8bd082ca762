package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Action identifies a secret-issuing operation for cooldown purposes.
type Action string

const (
	ActionVerifySend   Action = "verify-resend"
	ActionRecoverySend Action = "recovery-send"
)

// DefaultWindow is the minimum spacing between accepted issuances for the
// same (identity, action) pair.
const DefaultWindow = 60 * time.Second

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds returns the remaining wait in whole seconds, rounded up.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// RateLimitedError reports a denied issuance together with the remaining
// cooldown, so handlers can surface an exact retry hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

// RetryAfterSeconds returns the remaining wait in whole seconds, rounded up.
func (e *RateLimitedError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// AttemptStore records the last accepted issuance per (identity, action).
// Implementations must be visible to every service instance for the
// cooldown guarantee to hold across a multi-instance deployment.
type AttemptStore interface {
	// Acquire atomically records an attempt at now if the previous accepted
	// attempt is older than the window (or absent). It returns the
	// timestamp of the attempt currently holding the window and whether
	// this call acquired it.
	Acquire(ctx context.Context, identity string, action Action, now time.Time, window time.Duration) (time.Time, bool, error)
}

// Limiter bounds how often an identity may trigger a secret-issuing action.
// It must be consulted before generating a secret so a denied request has no
// side effects. Store failures are returned to the caller, which is expected
// to fail closed.
type Limiter struct {
	store  AttemptStore
	window time.Duration
	now    func() time.Time
}

// LimiterOption defines configuration options
type LimiterOption func(*Limiter)

// WithWindow overrides the cooldown window
func WithWindow(window time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.window = window
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a new issuance cooldown limiter
func NewLimiter(store AttemptStore, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:  store,
		window: DefaultWindow,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// TryAcquire checks whether the identity may perform the action now. On
// denial the decision carries the exact remaining wait; RetryAfterSeconds
// rounds it up to whole seconds.
func (l *Limiter) TryAcquire(ctx context.Context, identity string, action Action) (Decision, error) {
	now := l.now().UTC()

	last, acquired, err := l.store.Acquire(ctx, identity, action, now, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check issuance cooldown: %w", err)
	}

	if acquired {
		return Decision{Allowed: true}, nil
	}

	retryAfter := last.Add(l.window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
