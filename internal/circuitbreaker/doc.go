// Package circuitbreaker implements the circuit breaker pattern for the
// reservation domain's critical operations.
//
// A breaker is a three-state machine guarding one operation category:
//
//   - closed: calls pass through normally
//   - open: calls short-circuit to the configured fallback
//   - half_open: a trial call tests whether the dependency recovered
//
// Failures are only counted when their fault kind is in the breaker's
// expected set; anything else propagates to the caller untouched.
// Breaker state is persisted through a pluggable key-value store so
// independent worker processes converge on a shared view of health.
//
// Usage:
//
//	b := circuitbreaker.New(circuitbreaker.Config{
//	    Name:             "availability_check",
//	    FailureThreshold: 3,
//	    RecoveryTimeout:  15 * time.Second,
//	    ExpectedKinds:    []fault.Kind{fault.KindDataAccess, fault.KindValidation},
//	    Fallback:         denySlot,
//	})
//	result, err := circuitbreaker.Run(ctx, b, checkAvailability)
package circuitbreaker
