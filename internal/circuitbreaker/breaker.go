package circuitbreaker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/courtside/reservation-guard/internal/clock"
	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/statestore"
)

// Operation is a protected call. The breaker is agnostic to its
// internals; it only inspects the returned error's fault kind.
type Operation func(ctx context.Context) (any, error)

// Fallback produces a degraded result when the breaker denies the real
// call. cause is the classified failure that triggered the denial, or a
// *CircuitOpenError when the call was short-circuited.
type Fallback func(ctx context.Context, cause error) (any, error)

// CircuitOpenError is returned when a breaker denies a call and no
// fallback is configured.
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// StateChangeFunc observes state transitions. Called with the breaker's
// lock held; it must not call back into the breaker.
type StateChangeFunc func(name string, from, to State)

// CallFunc observes completed invocations of the protected operation.
type CallFunc func(name string, state State, duration time.Duration, err error)

// RejectFunc observes short-circuited calls.
type RejectFunc func(name string)

// Config is the static per-breaker policy, identical across all
// processes of a deployment.
type Config struct {
	Name             string
	FailureThreshold int
	RecoveryTimeout  time.Duration
	ExpectedKinds    []fault.Kind
	Fallback         Fallback
}

// Breaker guards a single operation category. Its mutable triple
// (failure count, state, last failure time) is persisted through the
// state store after every state-affecting call so sibling processes
// converge on a shared view of the operation's health.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	expectedKinds    map[fault.Kind]struct{}
	fallback         Fallback

	store       statestore.Store
	stateTTL    time.Duration
	clk         clock.Clock
	logger      *slog.Logger
	singleTrial bool

	onStateChange StateChangeFunc
	onCall        CallFunc
	onReject      RejectFunc

	mutex         sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	trialInFlight bool
}

// New constructs a breaker and, when a store is configured, restores
// the persisted triple left behind by this or a sibling process.
func New(cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
		expectedKinds:    make(map[fault.Kind]struct{}, len(cfg.ExpectedKinds)),
		fallback:         cfg.Fallback,
		stateTTL:         time.Hour,
		clk:              clock.Real{},
		logger:           slog.Default(),
		state:            StateClosed,
	}

	for _, kind := range cfg.ExpectedKinds {
		b.expectedKinds[kind] = struct{}{}
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.store != nil {
		b.restore(context.Background())
	}

	return b
}

// Name returns the operation category this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Invoke runs op under the breaker's protection.
//
// While Open and inside the recovery timeout, op is never called: the
// fallback result is returned, or a *CircuitOpenError when no fallback
// is configured. Past the recovery timeout the breaker moves to
// HalfOpen and op runs as a trial. Two callers observing the expired
// timeout together may both run a trial; that is tolerated unless the
// single-trial gate is enabled, in which case late callers are
// short-circuited while a trial is in flight.
//
// Errors whose fault kind is outside the breaker's expected set never
// touch its counters and propagate to the caller unchanged.
//
// The lock is held only for the state sections, never across op itself,
// so a slow call cannot stop other callers from evaluating the breaker.
// The breaker imposes no timeout of its own on op.
func (b *Breaker) Invoke(ctx context.Context, op Operation) (any, error) {
	b.mutex.Lock()
	switch b.state {
	case StateOpen:
		if b.clk.Now().Sub(b.lastFailure) < b.recoveryTimeout {
			b.mutex.Unlock()
			return b.reject(ctx)
		}
		b.transition(StateHalfOpen)
		if b.singleTrial {
			b.trialInFlight = true
		}
		b.persist(ctx)
	case StateHalfOpen:
		if b.singleTrial {
			if b.trialInFlight {
				b.mutex.Unlock()
				return b.reject(ctx)
			}
			b.trialInFlight = true
		}
	}
	b.mutex.Unlock()

	start := b.clk.Now()
	result, err := op(ctx)
	duration := b.clk.Now().Sub(start)

	if b.onCall != nil {
		b.onCall(b.name, b.State(), duration, err)
	}

	if err == nil {
		b.recordSuccess(ctx)
		return result, nil
	}

	if _, expected := b.expectedKinds[fault.KindOf(err)]; !expected {
		b.releaseTrial()
		return nil, err
	}

	b.recordFailure(ctx)

	if b.fallback != nil {
		return b.fallback(ctx, err)
	}
	return nil, err
}

// Stats returns a read-only snapshot. It never mutates breaker state,
// so repeated calls with no intervening Invoke are identical.
func (b *Breaker) Stats() Stats {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	stats := Stats{
		Name:             b.name,
		State:            b.state.String(),
		FailureCount:     b.failures,
		FailureThreshold: b.failureThreshold,
		RecoveryTimeout:  b.recoveryTimeout,
	}

	if !b.lastFailure.IsZero() {
		lastFailure := b.lastFailure
		stats.LastFailureTime = &lastFailure
		stats.TimeSinceLastFailure = b.clk.Now().Sub(b.lastFailure)
	}

	return stats
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Breaker) reject(ctx context.Context) (any, error) {
	if b.onReject != nil {
		b.onReject(b.name)
	}

	cause := &CircuitOpenError{Name: b.name}
	if b.fallback != nil {
		return b.fallback(ctx, cause)
	}
	return nil, cause
}

func (b *Breaker) recordSuccess(ctx context.Context) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures = 0
	b.lastFailure = time.Time{}
	b.trialInFlight = false
	b.transition(StateClosed)
	b.persist(ctx)
}

func (b *Breaker) recordFailure(ctx context.Context) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures++
	b.lastFailure = b.clk.Now()
	b.trialInFlight = false

	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.transition(StateOpen)
	}
	b.persist(ctx)
}

// releaseTrial frees the single-trial gate after an unclassified error,
// which by policy leaves counters and state untouched.
func (b *Breaker) releaseTrial() {
	if !b.singleTrial {
		return
	}
	b.mutex.Lock()
	b.trialInFlight = false
	b.mutex.Unlock()
}

// transition must be called with the lock held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	b.logger.Info("circuit breaker state changed",
		slog.String("breaker", b.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("failures", b.failures))

	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

const (
	keySuffixFailures    = "_failures"
	keySuffixState       = "_state"
	keySuffixLastFailure = "_last_failure"
)

// persist writes the mutable triple back to the shared store. Must be
// called with the lock held. Writes survive caller cancellation so a
// cancelled request cannot leave sibling processes with a stale view.
func (b *Breaker) persist(ctx context.Context) {
	if b.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	lastFailure := ""
	if !b.lastFailure.IsZero() {
		lastFailure = b.lastFailure.Format(time.RFC3339Nano)
	}

	if err := b.store.Set(ctx, b.name+keySuffixFailures, strconv.Itoa(b.failures), b.stateTTL); err != nil {
		b.logger.Warn("failed to persist failure count",
			slog.String("breaker", b.name), slog.Any("err", err))
	}
	if err := b.store.Set(ctx, b.name+keySuffixState, b.state.String(), b.stateTTL); err != nil {
		b.logger.Warn("failed to persist state",
			slog.String("breaker", b.name), slog.Any("err", err))
	}
	if err := b.store.Set(ctx, b.name+keySuffixLastFailure, lastFailure, b.stateTTL); err != nil {
		b.logger.Warn("failed to persist last failure time",
			slog.String("breaker", b.name), slog.Any("err", err))
	}
}

// restore loads the persisted triple at construction. Missing or
// malformed entries leave the zero value in place; a breaker never
// fails to construct because of a sick store.
func (b *Breaker) restore(ctx context.Context) {
	if raw, found, err := b.store.Get(ctx, b.name+keySuffixFailures); err != nil {
		b.logger.Warn("failed to restore failure count",
			slog.String("breaker", b.name), slog.Any("err", err))
	} else if found {
		if failures, parseErr := strconv.Atoi(raw); parseErr == nil {
			b.failures = failures
		}
	}

	if raw, found, err := b.store.Get(ctx, b.name+keySuffixState); err != nil {
		b.logger.Warn("failed to restore state",
			slog.String("breaker", b.name), slog.Any("err", err))
	} else if found {
		if state, parseErr := ParseState(raw); parseErr == nil {
			b.state = state
		}
	}

	if raw, found, err := b.store.Get(ctx, b.name+keySuffixLastFailure); err != nil {
		b.logger.Warn("failed to restore last failure time",
			slog.String("breaker", b.name), slog.Any("err", err))
	} else if found && raw != "" {
		if lastFailure, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			b.lastFailure = lastFailure
		}
	}

	// An open breaker without a failure timestamp cannot compute its
	// recovery window; treat it as closed.
	if b.state == StateOpen && b.lastFailure.IsZero() {
		b.state = StateClosed
		b.failures = 0
	}
}
