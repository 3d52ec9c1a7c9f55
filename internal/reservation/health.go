package reservation

import (
	"sort"

	"github.com/courtside/reservation-guard/internal/circuitbreaker"
)

// HealthStatus aggregates breaker health for the operational dashboard.
type HealthStatus struct {
	OverallHealthy   bool                            `json:"overall_healthy"`
	OpenBreakers     []string                        `json:"open_breakers"`
	HalfOpenBreakers []string                        `json:"half_open_breakers"`
	TotalBreakers    int                             `json:"total_breakers"`
	DetailedStats    map[string]circuitbreaker.Stats `json:"detailed_stats"`
}

// HealthStatus reports aggregate health. The system is healthy iff no
// breaker is open; half-open breakers are recovering, not unhealthy.
func (r *Registry) HealthStatus() HealthStatus {
	status := HealthStatus{
		OverallHealthy:   true,
		OpenBreakers:     []string{},
		HalfOpenBreakers: []string{},
		TotalBreakers:    len(r.breakers),
		DetailedStats:    make(map[string]circuitbreaker.Stats, len(r.breakers)),
	}

	for name, b := range r.breakers {
		stats := b.Stats()
		status.DetailedStats[name] = stats

		state, _ := circuitbreaker.ParseState(stats.State)
		switch state {
		case circuitbreaker.StateOpen:
			status.OverallHealthy = false
			status.OpenBreakers = append(status.OpenBreakers, name)
		case circuitbreaker.StateHalfOpen:
			status.HalfOpenBreakers = append(status.HalfOpenBreakers, name)
		}
	}

	sort.Strings(status.OpenBreakers)
	sort.Strings(status.HalfOpenBreakers)

	return status
}
