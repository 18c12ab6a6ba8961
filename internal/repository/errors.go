// Package repository holds the user store implementations and the error
// values they share. Handlers translate these sentinels into client errors:
// ErrNotFound becomes a 404 and ErrConflict a 409.
package repository

import "errors"

// ErrNotFound is returned when an id or email does not resolve to a user.
var ErrNotFound = errors.New("user not found")

// ErrConflict is returned when a write would break email uniqueness. It is
// raised from the storage layer's unique index, so it also catches
// concurrent registrations that both passed an application-level check.
var ErrConflict = errors.New("email already exists")
