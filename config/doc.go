// Package config loads and validates the service configuration from a
// YAML file and environment variables: server address, logging level,
// state store backend, and per-breaker tuning overrides.
package config
