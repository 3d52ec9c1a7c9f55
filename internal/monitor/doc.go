// Package monitor watches aggregate breaker health on an interval,
// logging trips and recoveries and notifying the metrics collector of
// health transitions.
package monitor
