package repository

import (
	"context"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
)

// UserRepository defines persistence for forum accounts. Lookups that find
// nothing return an error matching apperrors.ErrNotFound.
type UserRepository interface {
	// Create inserts a new user. A taken email yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail expects an already normalised address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update writes the mutable profile fields and the password hash.
	Update(ctx context.Context, user *domain.User) error

	// UpsertByEmail inserts user, or returns the stored row when the email is
	// already registered. The stored identity (id, provider, password) is
	// never overwritten; only an empty avatar is filled in.
	UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error)
}
