package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/account-service/internal/model"
)

// MemoryUserStore keeps users in process memory. It enforces email
// uniqueness under its own lock, the same guarantee the database stores get
// from their unique index.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string // normalized email -> id
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(_ context.Context, u model.User) (model.User, error) {
	u.Email = model.NormalizeEmail(u.Email)
	u.Roles = model.NormalizeRoles(u.Roles)
	if len(u.Roles) == 0 {
		u.Roles = []string{model.DefaultRole}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return model.User{}, ErrConflict
	}
	u.ID = uuid.NewString()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.byID[u.ID] = clone(u)
	s.byEmail[u.Email] = u.ID
	return clone(u), nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return clone(u), nil
}

func (s *MemoryUserStore) UpdateByID(_ context.Context, id string, patch model.UserPatch) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	oldEmail := u.Email
	if patch.Email != nil {
		email := model.NormalizeEmail(*patch.Email)
		patch.Email = &email
		if owner, taken := s.byEmail[email]; taken && owner != id {
			return model.User{}, ErrConflict
		}
	}
	patch.Apply(&u)
	u.UpdatedAt = time.Now().UTC()
	if u.Email != oldEmail {
		delete(s.byEmail, oldEmail)
		s.byEmail[u.Email] = id
	}
	s.byID[id] = u
	return clone(u), nil
}

// clone detaches the returned record from the stored one.
func clone(u model.User) model.User {
	u.Roles = slices.Clone(u.Roles)
	if u.DateOfBirth != nil {
		dob := *u.DateOfBirth
		u.DateOfBirth = &dob
	}
	return u
}
