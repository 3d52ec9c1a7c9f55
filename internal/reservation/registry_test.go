package reservation_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/courtside/reservation-guard/internal/circuitbreaker"
	"github.com/courtside/reservation-guard/internal/clock"
	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/reservation"
	"github.com/courtside/reservation-guard/internal/statestore"
)

// opStub tracks invocations and fails with the configured error while
// one is set.
type opStub struct {
	calls atomic.Int64
	err   atomic.Value // error or nil sentinel
}

func (s *opStub) failWith(err error) {
	s.err.Store(&err)
}

func (s *opStub) succeed() {
	var nilErr error
	s.err.Store(&nilErr)
}

func (s *opStub) invoke() error {
	s.calls.Add(1)
	if p, ok := s.err.Load().(*error); ok {
		return *p
	}
	return nil
}

var _ = Describe("Registry", func() {
	var (
		ctx          context.Context
		clk          *clock.Fake
		registry     *reservation.Registry
		availability *opStub
		creation     *opStub
		payment      *opStub
		pricing      *opStub
		cancellation *opStub
		notification *opStub
	)

	newRegistry := func(settings reservation.Settings) *reservation.Registry {
		ops := reservation.Operations{
			CheckAvailability: func(_ context.Context, _ reservation.AvailabilityRequest) (reservation.AvailabilityResult, error) {
				if err := availability.invoke(); err != nil {
					return reservation.AvailabilityResult{}, err
				}
				return reservation.AvailabilityResult{Available: true}, nil
			},
			CreateReservation: func(_ context.Context, req reservation.CreateRequest) (reservation.Reservation, error) {
				if err := creation.invoke(); err != nil {
					return reservation.Reservation{}, err
				}
				return reservation.Reservation{ID: "res-1", CourtID: req.CourtID}, nil
			},
			ProcessPayment: func(_ context.Context, _ reservation.PaymentRequest) (reservation.PaymentResult, error) {
				if err := payment.invoke(); err != nil {
					return reservation.PaymentResult{}, err
				}
				return reservation.PaymentResult{PaymentID: "pay-1", Status: reservation.PaymentStatusCompleted}, nil
			},
			CalculatePrice: func(_ context.Context, _ reservation.PriceRequest) (reservation.PriceResult, error) {
				if err := pricing.invoke(); err != nil {
					return reservation.PriceResult{}, err
				}
				return reservation.PriceResult{Amount: 40, Currency: "EUR"}, nil
			},
			CancelReservation: func(_ context.Context, _ reservation.CancellationRequest) (reservation.CancellationResult, error) {
				if err := cancellation.invoke(); err != nil {
					return reservation.CancellationResult{}, err
				}
				return reservation.CancellationResult{Status: reservation.CancellationStatusCancelled}, nil
			},
			SendNotification: func(_ context.Context, _ reservation.NotificationRequest) (reservation.NotificationResult, error) {
				if err := notification.invoke(); err != nil {
					return reservation.NotificationResult{}, err
				}
				return reservation.NotificationResult{Status: reservation.NotificationStatusSent}, nil
			},
		}
		settings.Clock = clk
		return reservation.NewRegistry(ops, settings)
	}

	BeforeEach(func() {
		ctx = context.Background()
		clk = clock.NewFake(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
		availability = &opStub{}
		creation = &opStub{}
		payment = &opStub{}
		pricing = &opStub{}
		cancellation = &opStub{}
		notification = &opStub{}
		for _, s := range []*opStub{availability, creation, payment, pricing, cancellation, notification} {
			s.succeed()
		}
		registry = newRegistry(reservation.Settings{})
	})

	Describe("catalog", func() {
		It("registers all six breakers with their default policies", func() {
			expected := map[string]struct {
				threshold int
				recovery  time.Duration
			}{
				reservation.BreakerAvailabilityCheck:   {3, 15 * time.Second},
				reservation.BreakerReservationCreation: {5, 30 * time.Second},
				reservation.BreakerPaymentProcessing:   {3, 60 * time.Second},
				reservation.BreakerPriceCalculation:    {7, 20 * time.Second},
				reservation.BreakerCancellation:        {4, 25 * time.Second},
				reservation.BreakerNotification:        {10, 45 * time.Second},
			}

			Expect(registry.Names()).To(HaveLen(6))
			for name, policy := range expected {
				stats, err := registry.Stats(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.FailureThreshold).To(Equal(policy.threshold), name)
				Expect(stats.RecoveryTimeout).To(Equal(policy.recovery), name)
				Expect(stats.State).To(Equal("closed"), name)
			}
		})

		It("fails with ErrUnknownBreaker for names outside the catalog", func() {
			_, err := registry.GetBreaker("unknown")
			Expect(errors.Is(err, reservation.ErrUnknownBreaker)).To(BeTrue())
		})

		It("applies policy overrides", func() {
			registry = newRegistry(reservation.Settings{
				Policies: map[string]reservation.Policy{
					reservation.BreakerAvailabilityCheck: {
						FailureThreshold: 1,
						RecoveryTimeout:  2 * time.Second,
					},
				},
			})

			stats, err := registry.Stats(reservation.BreakerAvailabilityCheck)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.FailureThreshold).To(Equal(1))
			Expect(stats.RecoveryTimeout).To(Equal(2 * time.Second))
		})
	})

	Describe("availability check", func() {
		It("trips after three data-access failures and fails safe", func() {
			availability.failWith(fault.New(fault.KindDataAccess, "db down"))

			for i := 0; i < 3; i++ {
				result, err := registry.CheckAvailability(ctx, reservation.AvailabilityRequest{CourtID: "court-1"})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Available).To(BeFalse())
				Expect(result.Fallback).To(BeTrue())
			}

			stats, _ := registry.Stats(reservation.BreakerAvailabilityCheck)
			Expect(stats.State).To(Equal("open"))

			// Inside the recovery window the database is never touched.
			clk.Advance(5 * time.Second)
			availability.calls.Store(0)

			result, err := registry.CheckAvailability(ctx, reservation.AvailabilityRequest{CourtID: "court-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reservation.AvailabilityResult{
				Available: false,
				Reason:    "availability service temporarily unavailable",
				Fallback:  true,
			}))
			Expect(availability.calls.Load()).To(BeZero())

			// Past the window a successful trial closes the breaker.
			availability.succeed()
			clk.Advance(11 * time.Second)

			result, err = registry.CheckAvailability(ctx, reservation.AvailabilityRequest{CourtID: "court-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Available).To(BeTrue())
			Expect(result.Fallback).To(BeFalse())

			stats, _ = registry.Stats(reservation.BreakerAvailabilityCheck)
			Expect(stats.State).To(Equal("closed"))
			Expect(stats.FailureCount).To(Equal(0))
		})
	})

	Describe("reservation creation", func() {
		It("stays closed indefinitely with no classified failures", func() {
			for i := 0; i < 20; i++ {
				res, err := registry.CreateReservation(ctx, reservation.CreateRequest{CourtID: "court-2"})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.ID).To(Equal("res-1"))
			}

			Expect(creation.calls.Load()).To(Equal(int64(20)))
			stats, _ := registry.Stats(reservation.BreakerReservationCreation)
			Expect(stats.State).To(Equal("closed"))
		})

		It("surfaces a retry-later error instead of fabricating a reservation", func() {
			creation.failWith(fault.New(fault.KindDataAccess, "db down"))

			for i := 0; i < 5; i++ {
				_, err := registry.CreateReservation(ctx, reservation.CreateRequest{})
				Expect(errors.Is(err, reservation.ErrReservationUnavailable)).To(BeTrue())
			}

			stats, _ := registry.Stats(reservation.BreakerReservationCreation)
			Expect(stats.State).To(Equal("open"))

			creation.calls.Store(0)
			_, err := registry.CreateReservation(ctx, reservation.CreateRequest{})
			Expect(errors.Is(err, reservation.ErrReservationUnavailable)).To(BeTrue())
			Expect(creation.calls.Load()).To(BeZero())
		})
	})

	Describe("payment processing", func() {
		It("resets the count on success before reaching the threshold", func() {
			payment.failWith(fault.New(fault.KindValidation, "bad card"))

			for i := 0; i < 2; i++ {
				result, err := registry.ProcessPayment(ctx, reservation.PaymentRequest{})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(reservation.PaymentStatusPending))
				Expect(result.Fallback).To(BeTrue())
			}

			payment.succeed()
			result, err := registry.ProcessPayment(ctx, reservation.PaymentRequest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(reservation.PaymentStatusCompleted))

			stats, _ := registry.Stats(reservation.BreakerPaymentProcessing)
			Expect(stats.State).To(Equal("closed"))
			Expect(stats.FailureCount).To(Equal(0))
		})

		It("marks payments pending while degraded", func() {
			payment.failWith(fault.New(fault.KindConnection, "gateway unreachable"))

			for i := 0; i < 3; i++ {
				_, _ = registry.ProcessPayment(ctx, reservation.PaymentRequest{})
			}

			stats, _ := registry.Stats(reservation.BreakerPaymentProcessing)
			Expect(stats.State).To(Equal("open"))

			result, err := registry.ProcessPayment(ctx, reservation.PaymentRequest{Amount: 40})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(reservation.PaymentStatusPending))
			Expect(result.Fallback).To(BeTrue())
		})
	})

	Describe("price calculation", func() {
		It("propagates unclassified errors untouched", func() {
			bug := errors.New("missing tariff key")
			pricing.failWith(bug)

			_, err := registry.CalculatePrice(ctx, reservation.PriceRequest{})
			Expect(err).To(BeIdenticalTo(bug))

			stats, _ := registry.Stats(reservation.BreakerPriceCalculation)
			Expect(stats.FailureCount).To(Equal(0))
			Expect(stats.State).To(Equal("closed"))
		})

		It("returns the configured conservative default while degraded", func() {
			registry = newRegistry(reservation.Settings{
				DefaultPrice: 30.00,
				Currency:     "EUR",
			})
			pricing.failWith(fault.New(fault.KindValue, "negative duration"))

			var result reservation.PriceResult
			var err error
			for i := 0; i < 7; i++ {
				result, err = registry.CalculatePrice(ctx, reservation.PriceRequest{})
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(result).To(Equal(reservation.PriceResult{
				Amount:   30.00,
				Currency: "EUR",
				Fallback: true,
			}))

			stats, _ := registry.Stats(reservation.BreakerPriceCalculation)
			Expect(stats.State).To(Equal("open"))
		})
	})

	Describe("cancellation", func() {
		It("parks cancellations for manual handling while degraded", func() {
			cancellation.failWith(fault.New(fault.KindDataAccess, "db down"))

			var result reservation.CancellationResult
			for i := 0; i < 4; i++ {
				result, _ = registry.CancelReservation(ctx, reservation.CancellationRequest{})
			}

			Expect(result.Status).To(Equal(reservation.CancellationStatusPendingManual))
			Expect(result.Fallback).To(BeTrue())

			stats, _ := registry.Stats(reservation.BreakerCancellation)
			Expect(stats.State).To(Equal("open"))
		})
	})

	Describe("notification", func() {
		It("defers notifications while degraded", func() {
			notification.failWith(fault.New(fault.KindTimeout, "smtp timeout"))

			var result reservation.NotificationResult
			for i := 0; i < 10; i++ {
				result, _ = registry.SendNotification(ctx, reservation.NotificationRequest{})
			}

			Expect(result.Status).To(Equal(reservation.NotificationStatusDeferred))
			Expect(result.Fallback).To(BeTrue())

			stats, _ := registry.Stats(reservation.BreakerNotification)
			Expect(stats.State).To(Equal("open"))
		})

		It("tolerates noise below its high threshold", func() {
			notification.failWith(fault.New(fault.KindConnection, "smtp refused"))

			for i := 0; i < 9; i++ {
				_, _ = registry.SendNotification(ctx, reservation.NotificationRequest{})
			}

			stats, _ := registry.Stats(reservation.BreakerNotification)
			Expect(stats.State).To(Equal("closed"))
			Expect(stats.FailureCount).To(Equal(9))
		})
	})

	Describe("health status", func() {
		It("is healthy with all breakers closed", func() {
			status := registry.HealthStatus()
			Expect(status.OverallHealthy).To(BeTrue())
			Expect(status.OpenBreakers).To(BeEmpty())
			Expect(status.HalfOpenBreakers).To(BeEmpty())
			Expect(status.TotalBreakers).To(Equal(6))
			Expect(status.DetailedStats).To(HaveLen(6))
		})

		It("turns unhealthy when any breaker opens", func() {
			availability.failWith(fault.New(fault.KindDataAccess, "db down"))
			for i := 0; i < 3; i++ {
				_, _ = registry.CheckAvailability(ctx, reservation.AvailabilityRequest{})
			}

			status := registry.HealthStatus()
			Expect(status.OverallHealthy).To(BeFalse())
			Expect(status.OpenBreakers).To(Equal([]string{reservation.BreakerAvailabilityCheck}))
		})

		It("reports half-open breakers separately", func() {
			availability.failWith(fault.New(fault.KindDataAccess, "db down"))
			for i := 0; i < 3; i++ {
				_, _ = registry.CheckAvailability(ctx, reservation.AvailabilityRequest{})
			}

			// Hold the breaker in HalfOpen by blocking the trial call.
			clk.Advance(16 * time.Second)

			b, err := registry.GetBreaker(reservation.BreakerAvailabilityCheck)
			Expect(err).NotTo(HaveOccurred())

			blocked := make(chan struct{})
			entered := make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = b.Invoke(ctx, func(ctx context.Context) (any, error) {
					close(entered)
					<-blocked
					return nil, fault.New(fault.KindDataAccess, "still down")
				})
			}()
			Eventually(entered).Should(BeClosed())

			status := registry.HealthStatus()
			Expect(status.OverallHealthy).To(BeTrue())
			Expect(status.HalfOpenBreakers).To(Equal([]string{reservation.BreakerAvailabilityCheck}))

			close(blocked)
			Eventually(done).Should(BeClosed())
		})

		It("persists breaker state through a shared store", func() {
			store := statestore.NewMemory()
			registry = newRegistry(reservation.Settings{Store: store, StateTTL: time.Hour})

			availability.failWith(fault.New(fault.KindDataAccess, "db down"))
			for i := 0; i < 3; i++ {
				_, _ = registry.CheckAvailability(ctx, reservation.AvailabilityRequest{})
			}

			// A sibling process constructing its own registry over the
			// same store observes the tripped breaker.
			sibling := newRegistry(reservation.Settings{Store: store, StateTTL: time.Hour})
			stats, err := sibling.Stats(reservation.BreakerAvailabilityCheck)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.State).To(Equal("open"))
			Expect(stats.FailureCount).To(Equal(3))
		})
	})

	Describe("direct breaker access", func() {
		It("exposes catalog breakers by name", func() {
			b, err := registry.GetBreaker(reservation.BreakerNotification)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name()).To(Equal(reservation.BreakerNotification))
			Expect(b.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})
})
