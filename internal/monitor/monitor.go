package monitor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/courtside/reservation-guard/internal/metrics"
	"github.com/courtside/reservation-guard/internal/reservation"
)

// Watch periodically polls the registry's aggregate health, logs
// breaker trips and recoveries, and forwards health transitions to the
// metrics collector. Runs until ctx is cancelled.
func Watch(
	ctx context.Context,
	registry *reservation.Registry,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastHealthy := true
	lastOpen := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			logger.Info("health monitor stopped")
			return

		case <-ticker.C:
			status := registry.HealthStatus()

			open := make(map[string]bool, len(status.OpenBreakers))
			for _, name := range status.OpenBreakers {
				open[name] = true
				if !lastOpen[name] {
					logger.Warn("circuit breaker tripped",
						slog.String("breaker", name),
						slog.Int("failures", status.DetailedStats[name].FailureCount))
				}
			}
			for name := range lastOpen {
				if !open[name] {
					logger.Info("circuit breaker no longer open",
						slog.String("breaker", name),
						slog.String("state", status.DetailedStats[name].State))
				}
			}
			lastOpen = open

			if status.OverallHealthy != lastHealthy {
				if status.OverallHealthy {
					logger.Info("reservation system healthy again")
				} else {
					logger.Warn("reservation system degraded",
						slog.String("open_breakers", strings.Join(status.OpenBreakers, ",")))
				}

				if collector != nil {
					collector.Emit(metrics.MetricEvent{
						Type:      metrics.EventHealthChanged,
						Timestamp: time.Now(),
						Healthy:   status.OverallHealthy,
					})
				}
				lastHealthy = status.OverallHealthy
			}
		}
	}
}
