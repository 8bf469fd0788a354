// Package domain defines the core entities, ports, and domain-specific
// errors of the matching-and-assignment engine.
package domain

import (
	"context"
	"errors"
)

// Context is the context type threaded through every port method.
type Context = context.Context

// Error taxonomy (sentinels). Every adapter wraps the underlying failure
// with one of these via %w so callers can branch with errors.Is.
var (
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a conditional write lost a race (status no
	// longer matched the expected value).
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument means the caller passed a structurally invalid
	// value (e.g. a validation-tag failure).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrValidation means a business-rule check failed on otherwise
	// well-formed input (invalid finalAmount, missing owner, ...).
	ErrValidation = errors.New("validation failed")
	// ErrTransient means the store or network call failed in a way the
	// queue should retry; handlers that return this keep state
	// unchanged so retries are safe.
	ErrTransient = errors.New("transient error")
	// ErrInternal is a catch-all for unexpected internal failures.
	ErrInternal = errors.New("internal error")
)
