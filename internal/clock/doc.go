// Package clock provides an injectable wall-clock source with a real
// implementation and a manually advanced fake for tests.
package clock
