// Package users implements the small user registry exposed next to the
// mirror endpoints.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUsername is returned when a username is blank.
var ErrInvalidUsername = errors.New("username is required")

// User is a registered user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Store persists users in insertion order.
type Store interface {
	Add(ctx context.Context, user User) error
	List(ctx context.Context) ([]User, error)
}

// IDGenerator produces user IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Service registers and lists users.
type Service struct {
	store Store
	idGen IDGenerator
}

// NewService constructs a Service.
func NewService(store Store, idGen IDGenerator) *Service {
	return &Service{store: store, idGen: idGen}
}

// Create registers username under a fresh ID.
func (s *Service) Create(ctx context.Context, username string) (User, error) {
	if strings.TrimSpace(username) == "" {
		return User{}, ErrInvalidUsername
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}
	user := User{ID: id, Username: username}
	if err := s.store.Add(ctx, user); err != nil {
		return User{}, fmt.Errorf("store user: %w", err)
	}
	return user, nil
}

// List returns every registered user.
func (s *Service) List(ctx context.Context) ([]User, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}
