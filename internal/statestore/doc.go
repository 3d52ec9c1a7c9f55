// Package statestore persists circuit breaker state in a key-value
// store with per-key TTL. Two implementations are provided:
//
//   - Memory: an in-process map for single-process deployments and tests
//   - Redis: a shared store so independent worker processes observe an
//     eventually consistent view of breaker health
//
// Writes are last-write-wins across processes. The system tolerates
// brief inconsistency rather than paying for distributed consensus.
package statestore
