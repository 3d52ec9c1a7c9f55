package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/courtside/reservation-guard/internal/circuitbreaker"
	"github.com/courtside/reservation-guard/internal/fault"
)

type EventType string

const (
	EventInvocation    EventType = "invocation"
	EventRejection     EventType = "rejection"
	EventStateChanged  EventType = "state_changed"
	EventHealthChanged EventType = "health_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Breaker   string
	Outcome   Outcome
	Duration  time.Duration
	From      circuitbreaker.State
	To        circuitbreaker.State
	Healthy   bool
}

// Collector consumes breaker events on a buffered channel so hot-path
// invocations never block on metrics bookkeeping. Events that would
// overflow the buffer are dropped.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	healthy atomic.Bool
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	c := &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
	c.healthy.Store(true)
	return c
}

// Emit enqueues an event without blocking; full buffers drop it.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("metrics collector started")
	defer c.logger.Info("metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventInvocation:
		c.metrics.RecordInvocation(event.Breaker, event.Outcome, event.Duration)

	case EventRejection:
		c.metrics.RecordRejection(event.Breaker)

	case EventStateChanged:
		if event.To == circuitbreaker.StateOpen {
			c.metrics.RecordTrip(event.Breaker)
		}
		if event.From != circuitbreaker.StateClosed && event.To == circuitbreaker.StateClosed {
			c.metrics.RecordRecovery(event.Breaker)
		}

	case EventHealthChanged:
		c.healthy.Store(event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot(c.healthy.Load())
}

// BreakerHooks returns the three breaker observer hooks wired to this
// collector, for use with the registry's settings.
func (c *Collector) BreakerHooks() (circuitbreaker.StateChangeFunc, circuitbreaker.CallFunc, circuitbreaker.RejectFunc) {
	onStateChange := func(name string, from, to circuitbreaker.State) {
		c.Emit(MetricEvent{
			Type:      EventStateChanged,
			Timestamp: time.Now(),
			Breaker:   name,
			From:      from,
			To:        to,
		})
	}

	onCall := func(name string, _ circuitbreaker.State, duration time.Duration, err error) {
		c.Emit(MetricEvent{
			Type:      EventInvocation,
			Timestamp: time.Now(),
			Breaker:   name,
			Outcome:   classify(err),
			Duration:  duration,
		})
	}

	onReject := func(name string) {
		c.Emit(MetricEvent{
			Type:      EventRejection,
			Timestamp: time.Now(),
			Breaker:   name,
		})
	}

	return onStateChange, onCall, onReject
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case fault.KindOf(err) == fault.KindNone && !isCircuitOpen(err):
		return OutcomePassthrough
	default:
		return OutcomeFailure
	}
}

func isCircuitOpen(err error) bool {
	var openErr *circuitbreaker.CircuitOpenError
	return errors.As(err, &openErr)
}
