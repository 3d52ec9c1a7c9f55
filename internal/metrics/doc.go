// Package metrics collects per-breaker invocation outcomes, rejection
// counts, trip/recovery counts, and latency percentiles through an
// event channel, and serves JSON snapshots for the operational
// dashboard.
package metrics
