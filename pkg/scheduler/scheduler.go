// Package scheduler bounds how long a single turn may take.
//
// A Scheduler runs a decision operation against the turn timeout and turns a
// late decision into a TurnTimeout. The grace period only widens the
// bookkeeping deadline used by the session sweeper; it never delays the
// timeout seen by the caller of Execute.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// Scheduler enforces per-turn timeouts. It is immutable after construction
// and safe for concurrent use.
type Scheduler struct {
	turnTimeout time.Duration
	gracePeriod time.Duration
	now         func() time.Time
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithGracePeriod sets the slack added to bookkeeping deadlines.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.gracePeriod = d
		}
	}
}

// WithClock replaces the time source used by Deadline and IsExpired.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a scheduler with the given turn timeout and the default grace period.
func New(turnTimeout time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		turnTimeout: turnTimeout,
		gracePeriod: domain.DefaultGracePeriod,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForConfig builds the scheduler of a game configuration.
func ForConfig(cfg domain.GameConfig, opts ...Option) *Scheduler {
	return New(cfg.TurnTimeout, append([]Option{WithGracePeriod(cfg.GracePeriod)}, opts...)...)
}

func (s *Scheduler) TurnTimeout() time.Duration { return s.turnTimeout }
func (s *Scheduler) GracePeriod() time.Duration { return s.gracePeriod }

// Now returns the current time of the scheduler clock.
func (s *Scheduler) Now() time.Time { return s.now() }

// Deadline returns from + turn timeout + grace period.
func (s *Scheduler) Deadline(from time.Time) time.Time {
	return from.Add(s.turnTimeout + s.gracePeriod)
}

// IsExpired reports whether deadline has passed on the scheduler clock.
// A zero deadline never expires.
func (s *Scheduler) IsExpired(deadline time.Time) bool {
	if deadline.IsZero() {
		return false
	}
	return s.now().After(deadline)
}

type outcome[T any] struct {
	value T
	err   error
}

// Execute runs op for playerID and waits at most the turn timeout for it.
//
// A result that arrives in time is returned unchanged, error included. When
// the timeout fires first, Execute returns a TurnTimeout and cancels the
// context passed to op; op keeps running until it notices and its late
// result is dropped. A panic inside op is reported as an AIProviderError.
// Cancellation of ctx is reported as an IoError.
func Execute[T any](ctx context.Context, s *Scheduler, playerID string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: domain.AIProviderError(fmt.Sprintf("decision for %s panicked: %v", playerID, r), nil)}
			}
		}()
		v, err := op(opCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	timer := time.NewTimer(s.turnTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.value, res.err
	case <-timer.C:
		// Prefer a result that raced the timer.
		select {
		case res := <-done:
			return res.value, res.err
		default:
		}
		return zero, domain.TurnTimeout(playerID)
	case <-ctx.Done():
		return zero, domain.IoError(ctx.Err())
	}
}
