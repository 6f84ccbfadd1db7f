package user

import (
	"context"

	"github.com/mkrupp/postboard/internal/domain"
)

// Repository defines the interface for user persistence.
type Repository interface {
	// CreateUser stores user and returns its new id.
	// Returns ErrEmailExists if the email is already registered.
	CreateUser(ctx context.Context, user *domain.User) (domain.UserID, error)

	// GetUserByID returns the user and true if found, or nil and false if not.
	GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, bool, error)

	// GetUserByEmail returns the user and true if found, or nil and false if not.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// ListUsers returns all users in insertion order.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateUser applies the non-nil fields of update and reports whether the user exists.
	// Returns ErrEmailExists if the new email belongs to another user.
	UpdateUser(ctx context.Context, id domain.UserID, update domain.UserUpdate) (bool, error)

	// DeleteUser removes the user and reports whether it existed.
	DeleteUser(ctx context.Context, id domain.UserID) (bool, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)
