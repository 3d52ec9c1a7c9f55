package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/courtside/reservation-guard/internal/clock"
	"github.com/courtside/reservation-guard/internal/statestore"
)

// Option configures a Breaker.
type Option func(*Breaker)

// WithStore persists the breaker's mutable triple through the given
// store so sibling processes share its view of the operation's health.
// Entries are written with ttl so abandoned breakers self-heal; the
// default is one hour.
func WithStore(store statestore.Store, ttl time.Duration) Option {
	return func(b *Breaker) {
		b.store = store
		if ttl > 0 {
			b.stateTTL = ttl
		}
	}
}

// WithClock sets the wall-clock source. Used by tests to drive the
// recovery timeout by hand.
func WithClock(clk clock.Clock) Option {
	return func(b *Breaker) {
		b.clk = clk
	}
}

// WithLogger sets the logger for state transitions and store errors.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithSingleTrial serializes the Open to HalfOpen transition so at most
// one trial call is in flight at a time. Off by default: the permissive
// behavior tolerates concurrent trials.
func WithSingleTrial(enabled bool) Option {
	return func(b *Breaker) {
		b.singleTrial = enabled
	}
}

// OnStateChange sets a hook observing state transitions.
func OnStateChange(fn StateChangeFunc) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// OnCall sets a hook observing completed operation invocations.
func OnCall(fn CallFunc) Option {
	return func(b *Breaker) {
		b.onCall = fn
	}
}

// OnReject sets a hook observing short-circuited calls.
func OnReject(fn RejectFunc) Option {
	return func(b *Breaker) {
		b.onReject = fn
	}
}
