// Package common defines shared constants and sentinel errors used across
// the storefront server and client. Callers should use errors.Is to match
// these values; lower layers wrap them with context via fmt.Errorf("%w").
package common

import "errors"

var (
	// Document store outcomes. A lookup miss is not a failure of the store.
	ErrorNotFound       = errors.New("not found")
	ErrorAlreadyExists  = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrIntegrity marks a correlated record that should exist but does not,
	// e.g. a user document whose customer document is missing.
	ErrIntegrity = errors.New("data integrity error")

	// ErrNotImplemented replaces "operation not built yet" placeholders.
	ErrNotImplemented = errors.New("not implemented")

	// Auth errors (invalid, malformed or wrongly signed token).
	ErrInvalidToken = errors.New("invalid token")

	// Session lifecycle errors. Never existed and evicted are reported alike.
	ErrSessionExpired = errors.New("session expired")
)
