// Package common defines shared constants and sentinel errors used across
// the storage, service and HTTP layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Startup-only. A schema that cannot be brought forward is fatal.
	ErrSchema = errors.New("schema error")

	// Storage-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")

	// Snapshot errors.
	ErrContainerFormat = errors.New("container format error")
	ErrTransientIO     = errors.New("temporary storage error")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("validation error")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
