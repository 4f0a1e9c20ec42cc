package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

// UserService exposes account reads and profile updates.
type UserService struct {
	users port.UserRepository
}

// NewUserService constructs a UserService instance.
func NewUserService(users port.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetByID returns the sanitized account for the given id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// UpdateProfile changes the account's name and email. Duplicates surface
// as repository.DuplicateFieldError naming the field.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, name, email string) (*domain.User, error) {
	user, err := s.users.Update(ctx, id, name, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}
