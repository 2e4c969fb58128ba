package repository

import (
	"context"

	"workorder-tracker/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Lookups that match nothing return domain.ErrNotFound.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByLogin matches the email when login contains '@', the username otherwise.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	GetByAuthyID(ctx context.Context, authyID string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateUsername(ctx context.Context, id int64, username string) (*domain.User, error)
	// SetTwoFactor stores the provider handle and phone on a user that has none.
	// It returns domain.ErrAlreadyEnrolled when the user already carries a handle.
	SetTwoFactor(ctx context.Context, id int64, authyID, phone string) (*domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
