// Package fault defines the closed set of failure kinds that circuit
// breakers count against their thresholds. Operations tag the errors
// they return; anything untagged bypasses breaker accounting entirely
// and propagates to the caller unchanged.
package fault
