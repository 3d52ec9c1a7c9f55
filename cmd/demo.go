package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/reservation"
)

// failureInjector lets the fault-injection endpoint force classified
// failures on individual operations, so breakers can be driven through
// trip/recover cycles without a degraded real dependency.
type failureInjector struct {
	mutex sync.RWMutex
	modes map[string]fault.Kind
}

func newFailureInjector() *failureInjector {
	return &failureInjector{
		modes: make(map[string]fault.Kind),
	}
}

func (f *failureInjector) set(operation string, kind fault.Kind) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if kind == fault.KindNone {
		delete(f.modes, operation)
		return
	}
	f.modes[operation] = kind
}

func (f *failureInjector) kindFor(operation string) (fault.Kind, bool) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	kind, ok := f.modes[operation]
	return kind, ok
}

func (f *failureInjector) fail(operation string) error {
	if kind, ok := f.kindFor(operation); ok {
		return fault.New(kind, "injected %s failure", kind)
	}
	return nil
}

// demoOperations simulates the club backend's protected operations
// against in-memory state. A real deployment supplies operations backed
// by its database, payment gateway, and notification service instead.
func demoOperations(injector *failureInjector) reservation.Operations {
	var mutex sync.Mutex
	reservations := make(map[string]reservation.Reservation)

	return reservation.Operations{
		CheckAvailability: func(_ context.Context, req reservation.AvailabilityRequest) (reservation.AvailabilityResult, error) {
			if err := injector.fail(reservation.BreakerAvailabilityCheck); err != nil {
				return reservation.AvailabilityResult{}, err
			}
			return reservation.AvailabilityResult{Available: true}, nil
		},

		CreateReservation: func(_ context.Context, req reservation.CreateRequest) (reservation.Reservation, error) {
			if err := injector.fail(reservation.BreakerReservationCreation); err != nil {
				return reservation.Reservation{}, err
			}

			res := reservation.Reservation{
				ID:        newID(),
				CourtID:   req.CourtID,
				Date:      req.Date,
				StartTime: req.StartTime,
				EndTime:   req.EndTime,
				PlayerID:  req.PlayerID,
				CreatedAt: time.Now(),
			}

			mutex.Lock()
			reservations[res.ID] = res
			mutex.Unlock()

			return res, nil
		},

		ProcessPayment: func(_ context.Context, req reservation.PaymentRequest) (reservation.PaymentResult, error) {
			if err := injector.fail(reservation.BreakerPaymentProcessing); err != nil {
				return reservation.PaymentResult{}, err
			}
			return reservation.PaymentResult{
				PaymentID: newID(),
				Status:    reservation.PaymentStatusCompleted,
			}, nil
		},

		CalculatePrice: func(_ context.Context, req reservation.PriceRequest) (reservation.PriceResult, error) {
			if err := injector.fail(reservation.BreakerPriceCalculation); err != nil {
				return reservation.PriceResult{}, err
			}
			return reservation.PriceResult{Amount: 40.00, Currency: "EUR"}, nil
		},

		CancelReservation: func(_ context.Context, req reservation.CancellationRequest) (reservation.CancellationResult, error) {
			if err := injector.fail(reservation.BreakerCancellation); err != nil {
				return reservation.CancellationResult{}, err
			}

			mutex.Lock()
			delete(reservations, req.ReservationID)
			mutex.Unlock()

			return reservation.CancellationResult{Status: reservation.CancellationStatusCancelled}, nil
		},

		SendNotification: func(_ context.Context, req reservation.NotificationRequest) (reservation.NotificationResult, error) {
			if err := injector.fail(reservation.BreakerNotification); err != nil {
				return reservation.NotificationResult{}, err
			}
			return reservation.NotificationResult{Status: reservation.NotificationStatusSent}, nil
		},
	}
}

func newID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
