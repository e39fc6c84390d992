package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/sitemirror/internal/users"
)

// UserStore keeps registered users in-memory.
type UserStore struct {
	mu    sync.RWMutex
	users []users.User
}

// NewUserStore constructs a UserStore.
func NewUserStore() *UserStore {
	return &UserStore{}
}

// Add appends a user.
func (s *UserStore) Add(_ context.Context, user users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
	return nil
}

// List returns a copy of all users in insertion order.
func (s *UserStore) List(_ context.Context) ([]users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]users.User, len(s.users))
	copy(out, s.users)
	return out, nil
}
