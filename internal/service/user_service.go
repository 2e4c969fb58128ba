package service

import (
	"context"
	"strings"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
	"workorder-tracker/internal/token"
)

// UserService describes user lookup and maintenance operations.
type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	// Current returns nil without error for anonymous viewers.
	Current(ctx context.Context, viewer *token.Claims) (*domain.User, error)
	UpdateUsername(ctx context.Context, viewer *token.Claims, username string) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = *sanitizeUser(&users[i])
	}
	return users, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Current(ctx context.Context, viewer *token.Claims) (*domain.User, error) {
	if viewer == nil {
		return nil, nil
	}
	return s.Get(ctx, viewer.UserID)
}

func (s *userService) UpdateUsername(ctx context.Context, viewer *token.Claims, username string) (*domain.User, error) {
	if viewer == nil {
		return nil, domain.E(domain.KindUnauthenticated, "not authenticated as user", nil)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.E(domain.KindInvalidInput, "username is required", nil)
	}
	user, err := s.users.UpdateUsername(ctx, viewer.UserID, username)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.E(domain.KindNotFound, "user not found", nil)
	}
	return nil
}

// sanitizeUser returns a copy safe to hand outside the service layer.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
