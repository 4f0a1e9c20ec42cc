package port

import (
	"context"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
)

// UserRepository manages user persistence. The refresh-token list lives on
// the user row; UpdateRefreshTokens performs an optimistic compare-and-swap
// against the row version so concurrent writers cannot clobber each other.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*domain.User, error)
	Update(ctx context.Context, id int64, name, email string) (*domain.User, error)
	SetEmailConfirmed(ctx context.Context, id int64) error
	// UpdateRefreshTokens replaces the hashed refresh-token list. It fails
	// with repository.ErrVersionConflict when expectedVersion no longer
	// matches the stored row version.
	UpdateRefreshTokens(ctx context.Context, id int64, hashes []string, expectedVersion int64) error
}
