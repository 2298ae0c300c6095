package domain

import "errors"

var (
	// ErrValidation marks structural input problems surfaced to the caller.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for unknown batch ids.
	ErrNotFound = errors.New("not found")
)
