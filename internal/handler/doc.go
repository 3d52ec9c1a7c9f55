// Package handler exposes the guarded reservation operations and the
// breaker dashboard (health, stats) over HTTP.
package handler
