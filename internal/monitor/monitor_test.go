package monitor_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/metrics"
	"github.com/courtside/reservation-guard/internal/monitor"
	"github.com/courtside/reservation-guard/internal/reservation"
)

var _ = Describe("Watch", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		collector *metrics.Collector
		registry  *reservation.Registry
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(64, slog.Default())
		collector.Start(ctx)

		registry = reservation.NewRegistry(reservation.Operations{
			CheckAvailability: func(_ context.Context, _ reservation.AvailabilityRequest) (reservation.AvailabilityResult, error) {
				return reservation.AvailabilityResult{}, fault.New(fault.KindDataAccess, "db down")
			},
		}, reservation.Settings{})

		go monitor.Watch(ctx, registry, 10*time.Millisecond, slog.Default(), collector)
	})

	AfterEach(func() {
		cancel()
	})

	It("reports a health transition when a breaker trips", func() {
		for i := 0; i < 3; i++ {
			_, _ = registry.CheckAvailability(ctx, reservation.AvailabilityRequest{})
		}
		Expect(registry.HealthStatus().OverallHealthy).To(BeFalse())

		Eventually(func() bool {
			return collector.Snapshot().OverallHealthy
		}, time.Second).Should(BeFalse())
	})
})
