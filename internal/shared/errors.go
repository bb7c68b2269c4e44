package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates API key verification failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTenantMissing occurs when a request carries no tenant header.
	ErrTenantMissing = errors.New("tenant key missing")
)
