package metrics

import (
	"sort"
	"sync"
	"time"
)

// Outcome classifies a completed invocation.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeFailure     Outcome = "failure"
	OutcomePassthrough Outcome = "passthrough" // unclassified error, breaker untouched
)

type Metrics struct {
	mutex       sync.RWMutex
	invocations map[string]int64
	outcomes    map[string]map[Outcome]int64
	rejections  map[string]int64
	trips       map[string]int64
	recoveries  map[string]int64
	durations   map[string][]time.Duration
	startTime   time.Time
}

type Snapshot struct {
	TotalInvocations int64                     `json:"total_invocations"`
	Uptime           time.Duration             `json:"uptime"`
	Breakers         map[string]BreakerMetrics `json:"breakers"`
	OverallHealthy   bool                      `json:"overall_healthy"`
}

type BreakerMetrics struct {
	Invocations  int64         `json:"invocations"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	Passthroughs int64         `json:"passthroughs"`
	Rejections   int64         `json:"rejections"`
	Trips        int64         `json:"trips"`
	Recoveries   int64         `json:"recoveries"`
	AvgDuration  time.Duration `json:"avg_duration"`
	P50Duration  time.Duration `json:"p50_duration"`
	P95Duration  time.Duration `json:"p95_duration"`
	P99Duration  time.Duration `json:"p99_duration"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		invocations: make(map[string]int64),
		outcomes:    make(map[string]map[Outcome]int64),
		rejections:  make(map[string]int64),
		trips:       make(map[string]int64),
		recoveries:  make(map[string]int64),
		durations:   make(map[string][]time.Duration),
		startTime:   time.Now(),
	}
}

func (m *Metrics) RecordInvocation(breaker string, outcome Outcome, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.invocations[breaker]++

	if m.outcomes[breaker] == nil {
		m.outcomes[breaker] = make(map[Outcome]int64)
	}
	m.outcomes[breaker][outcome]++

	m.durations[breaker] = append(m.durations[breaker], duration)
	if len(m.durations[breaker]) > 1000 {
		m.durations[breaker] = m.durations[breaker][1:]
	}
}

func (m *Metrics) RecordRejection(breaker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[breaker]++
}

func (m *Metrics) RecordTrip(breaker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.trips[breaker]++
}

func (m *Metrics) RecordRecovery(breaker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.recoveries[breaker]++
}

func (m *Metrics) Snapshot(overallHealthy bool) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:         time.Since(m.startTime),
		Breakers:       make(map[string]BreakerMetrics),
		OverallHealthy: overallHealthy,
	}

	allBreakers := make(map[string]bool)
	for breaker := range m.invocations {
		allBreakers[breaker] = true
	}
	for breaker := range m.rejections {
		allBreakers[breaker] = true
	}
	for breaker := range m.trips {
		allBreakers[breaker] = true
	}

	for breaker := range allBreakers {
		snap.TotalInvocations += m.invocations[breaker]

		bm := BreakerMetrics{
			Invocations:  m.invocations[breaker],
			Successes:    m.outcomes[breaker][OutcomeSuccess],
			Failures:     m.outcomes[breaker][OutcomeFailure],
			Passthroughs: m.outcomes[breaker][OutcomePassthrough],
			Rejections:   m.rejections[breaker],
			Trips:        m.trips[breaker],
			Recoveries:   m.recoveries[breaker],
		}

		durations := m.durations[breaker]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgDuration = average(sorted)
			bm.P50Duration = percentile(sorted, 0.50)
			bm.P95Duration = percentile(sorted, 0.95)
			bm.P99Duration = percentile(sorted, 0.99)
		}

		snap.Breakers[breaker] = bm
	}

	return snap
}

func average(sorted []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	return total / time.Duration(len(sorted))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
