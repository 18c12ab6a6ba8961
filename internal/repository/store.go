package repository

import (
	"context"

	"github.com/iliyamo/account-service/internal/model"
)

// UserStore is the system of record for user accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	// Create persists u, assigning its id and timestamps. It returns
	// ErrConflict when the email is already taken.
	Create(ctx context.Context, u model.User) (model.User, error)
	// UpdateByID applies patch and returns the record as stored afterwards.
	UpdateByID(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
}

// Authoritative returns the store that owns the record behind s, skipping
// any cache in front of it. Credential checks read through it.
func Authoritative(s UserStore) UserStore {
	if c, ok := s.(interface{ Uncached() UserStore }); ok {
		return c.Uncached()
	}
	return s
}
