package circuitbreaker

import "time"

// Stats is a point-in-time snapshot of a breaker, JSON-serializable for
// the operational dashboard.
type Stats struct {
	Name                 string        `json:"name"`
	State                string        `json:"state"`
	FailureCount         int           `json:"failure_count"`
	FailureThreshold     int           `json:"failure_threshold"`
	RecoveryTimeout      time.Duration `json:"recovery_timeout"`
	LastFailureTime      *time.Time    `json:"last_failure_time,omitempty"`
	TimeSinceLastFailure time.Duration `json:"time_since_last_failure,omitempty"`
}
