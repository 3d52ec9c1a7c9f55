package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/courtside/reservation-guard/internal/circuitbreaker"
	"github.com/courtside/reservation-guard/internal/clock"
	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/statestore"
)

// Breaker names, one per protected operation category.
const (
	BreakerAvailabilityCheck   = "availability_check"
	BreakerReservationCreation = "reservation_creation"
	BreakerPaymentProcessing   = "payment_processing"
	BreakerPriceCalculation    = "price_calculation"
	BreakerCancellation        = "cancellation"
	BreakerNotification        = "notification"
)

var (
	// ErrUnknownBreaker is returned when a breaker name is not in the
	// registry's fixed catalog.
	ErrUnknownBreaker = errors.New("unknown circuit breaker")

	// ErrReservationUnavailable is the deliberate fallback for
	// reservation creation: fabricating a reservation while the
	// underlying store is degraded risks data corruption, so the
	// caller is told to retry later instead.
	ErrReservationUnavailable = errors.New("reservation service unavailable, try again later")
)

// Policy overrides a catalog breaker's default tuning.
type Policy struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SingleTrial      bool
}

// Settings configures a Registry. The zero value yields an unpersisted
// registry with catalog defaults, a real clock, and the default logger.
type Settings struct {
	Store    statestore.Store
	StateTTL time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger

	// Policies override catalog defaults per breaker name.
	Policies map[string]Policy

	// DefaultPrice is the conservative amount returned by the price
	// calculation fallback. Deployment-specific.
	DefaultPrice float64
	Currency     string

	OnStateChange circuitbreaker.StateChangeFunc
	OnCall        circuitbreaker.CallFunc
	OnReject      circuitbreaker.RejectFunc
}

// Registry holds the fixed catalog of breakers guarding the critical
// reservation operations. Callers go through the typed wrappers and
// never manipulate breaker internals directly.
type Registry struct {
	breakers map[string]*circuitbreaker.Breaker
	ops      Operations
	logger   *slog.Logger
}

// NewRegistry builds the catalog. Operations tuned to trip fast and
// recover slowly are those with the highest blast radius if wrongly
// allowed through (reservation creation, payments); high-volume,
// low-risk operations (notification) tolerate more noise.
func NewRegistry(ops Operations, settings Settings) *Registry {
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	if settings.Clock == nil {
		settings.Clock = clock.Real{}
	}
	if settings.DefaultPrice == 0 {
		settings.DefaultPrice = 25.00
	}
	if settings.Currency == "" {
		settings.Currency = "EUR"
	}

	r := &Registry{
		breakers: make(map[string]*circuitbreaker.Breaker),
		ops:      ops,
		logger:   settings.Logger,
	}

	catalog := []circuitbreaker.Config{
		{
			Name:             BreakerAvailabilityCheck,
			FailureThreshold: 3,
			RecoveryTimeout:  15 * time.Second,
			ExpectedKinds:    []fault.Kind{fault.KindDataAccess, fault.KindValidation},
			// Fail safe: deny the slot rather than risk a double booking.
			Fallback: func(_ context.Context, _ error) (any, error) {
				return AvailabilityResult{
					Available: false,
					Reason:    "availability service temporarily unavailable",
					Fallback:  true,
				}, nil
			},
		},
		{
			Name:             BreakerReservationCreation,
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			ExpectedKinds:    []fault.Kind{fault.KindDataAccess, fault.KindValidation},
			Fallback: func(_ context.Context, _ error) (any, error) {
				return nil, ErrReservationUnavailable
			},
		},
		{
			Name:             BreakerPaymentProcessing,
			FailureThreshold: 3,
			RecoveryTimeout:  60 * time.Second,
			ExpectedKinds:    []fault.Kind{fault.KindValidation, fault.KindConnection},
			// Defer the charge instead of losing it.
			Fallback: func(_ context.Context, _ error) (any, error) {
				return PaymentResult{Status: PaymentStatusPending, Fallback: true}, nil
			},
		},
		{
			Name:             BreakerPriceCalculation,
			FailureThreshold: 7,
			RecoveryTimeout:  20 * time.Second,
			ExpectedKinds:    []fault.Kind{fault.KindValidation, fault.KindValue},
			Fallback: func(_ context.Context, _ error) (any, error) {
				return PriceResult{
					Amount:   settings.DefaultPrice,
					Currency: settings.Currency,
					Fallback: true,
				}, nil
			},
		},
		{
			Name:             BreakerCancellation,
			FailureThreshold: 4,
			RecoveryTimeout:  25 * time.Second,
			ExpectedKinds:    []fault.Kind{fault.KindDataAccess, fault.KindValidation},
			Fallback: func(_ context.Context, _ error) (any, error) {
				return CancellationResult{Status: CancellationStatusPendingManual, Fallback: true}, nil
			},
		},
		{
			Name:             BreakerNotification,
			FailureThreshold: 10,
			RecoveryTimeout:  45 * time.Second,
			ExpectedKinds:    []fault.Kind{fault.KindConnection, fault.KindTimeout},
			Fallback: func(_ context.Context, _ error) (any, error) {
				return NotificationResult{Status: NotificationStatusDeferred, Fallback: true}, nil
			},
		},
	}

	for _, cfg := range catalog {
		opts := []circuitbreaker.Option{
			circuitbreaker.WithClock(settings.Clock),
			circuitbreaker.WithLogger(settings.Logger),
		}
		if settings.Store != nil {
			opts = append(opts, circuitbreaker.WithStore(settings.Store, settings.StateTTL))
		}
		if policy, ok := settings.Policies[cfg.Name]; ok {
			if policy.FailureThreshold > 0 {
				cfg.FailureThreshold = policy.FailureThreshold
			}
			if policy.RecoveryTimeout > 0 {
				cfg.RecoveryTimeout = policy.RecoveryTimeout
			}
			opts = append(opts, circuitbreaker.WithSingleTrial(policy.SingleTrial))
		}
		if settings.OnStateChange != nil {
			opts = append(opts, circuitbreaker.OnStateChange(settings.OnStateChange))
		}
		if settings.OnCall != nil {
			opts = append(opts, circuitbreaker.OnCall(settings.OnCall))
		}
		if settings.OnReject != nil {
			opts = append(opts, circuitbreaker.OnReject(settings.OnReject))
		}

		r.breakers[cfg.Name] = circuitbreaker.New(cfg, opts...)
	}

	return r
}

// GetBreaker resolves a catalog breaker by name.
func (r *Registry) GetBreaker(name string) (*circuitbreaker.Breaker, error) {
	b, exists := r.breakers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBreaker, name)
	}
	return b, nil
}

// Names returns the catalog breaker names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats snapshots a single breaker.
func (r *Registry) Stats(name string) (circuitbreaker.Stats, error) {
	b, err := r.GetBreaker(name)
	if err != nil {
		return circuitbreaker.Stats{}, err
	}
	return b.Stats(), nil
}

// CheckAvailability guards the availability lookup. When the breaker is
// open the slot is reported unavailable (fail safe).
func (r *Registry) CheckAvailability(ctx context.Context, req AvailabilityRequest) (AvailabilityResult, error) {
	return circuitbreaker.Run(ctx, r.breakers[BreakerAvailabilityCheck], func(ctx context.Context) (AvailabilityResult, error) {
		return r.ops.CheckAvailability(ctx, req)
	})
}

// CreateReservation guards reservation creation. When the breaker is
// open the caller receives ErrReservationUnavailable rather than a
// fabricated reservation.
func (r *Registry) CreateReservation(ctx context.Context, req CreateRequest) (Reservation, error) {
	return circuitbreaker.Run(ctx, r.breakers[BreakerReservationCreation], func(ctx context.Context) (Reservation, error) {
		return r.ops.CreateReservation(ctx, req)
	})
}

// ProcessPayment guards payment processing. Degraded calls mark the
// payment pending for deferred processing.
func (r *Registry) ProcessPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	return circuitbreaker.Run(ctx, r.breakers[BreakerPaymentProcessing], func(ctx context.Context) (PaymentResult, error) {
		return r.ops.ProcessPayment(ctx, req)
	})
}

// CalculatePrice guards price calculation. Degraded calls return the
// configured conservative default, flagged as a fallback.
func (r *Registry) CalculatePrice(ctx context.Context, req PriceRequest) (PriceResult, error) {
	return circuitbreaker.Run(ctx, r.breakers[BreakerPriceCalculation], func(ctx context.Context) (PriceResult, error) {
		return r.ops.CalculatePrice(ctx, req)
	})
}

// CancelReservation guards cancellation. Degraded calls park the
// reservation for manual cancellation.
func (r *Registry) CancelReservation(ctx context.Context, req CancellationRequest) (CancellationResult, error) {
	return circuitbreaker.Run(ctx, r.breakers[BreakerCancellation], func(ctx context.Context) (CancellationResult, error) {
		return r.ops.CancelReservation(ctx, req)
	})
}

// SendNotification guards notification dispatch. Degraded calls defer
// the notification for a later retry.
func (r *Registry) SendNotification(ctx context.Context, req NotificationRequest) (NotificationResult, error) {
	return circuitbreaker.Run(ctx, r.breakers[BreakerNotification], func(ctx context.Context) (NotificationResult, error) {
		return r.ops.SendNotification(ctx, req)
	})
}
