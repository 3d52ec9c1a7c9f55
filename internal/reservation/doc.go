// Package reservation wires the circuit breaker catalog protecting the
// club's critical reservation operations: availability checks,
// reservation creation, payment processing, price calculation,
// cancellation, and notification dispatch.
//
// Each operation gets its own breaker with tuning matched to its blast
// radius. The Registry exposes one typed wrapper per operation so
// callers never touch breaker internals, plus aggregate health
// reporting for the operational dashboard.
package reservation
