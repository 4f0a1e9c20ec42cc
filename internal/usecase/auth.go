package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/logger"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

// AuthService coordinates registration, password login, and the refresh
// token lifecycle. All Argon2id work is dispatched through the bounded
// hash pool.
type AuthService struct {
	users        port.UserRepository
	store        *RefreshTokenStore
	issuer       *security.TokenIssuer
	pool         *security.HashPool
	validator    *security.PasswordValidator
	events       port.EventPublisher
	verification *EmailVerificationService
	logger       *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	store *RefreshTokenStore,
	issuer *security.TokenIssuer,
	pool *security.HashPool,
	validator *security.PasswordValidator,
	events port.EventPublisher,
	verification *EmailVerificationService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		store:        store,
		issuer:       issuer,
		pool:         pool,
		validator:    validator,
		events:       events,
		verification: verification,
		logger:       log,
	}
}

// Register creates a password account and dispatches the confirmation
// link. Duplicate email or name surfaces as repository.DuplicateFieldError
// naming the offending field. A failed mail send does not undo the
// registration; the user can request a resend.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if err := s.validator.Validate(password); err != nil {
		return nil, err
	}

	hash, err := s.pool.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	event := domain.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Federated:    false,
		RegisteredAt: user.RegisteredAt,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed", zap.Error(err))
	}

	if err := s.verification.SendConfirmationLink(ctx, user.Email); err != nil {
		s.logger.Warn("send confirmation link failed",
			zap.Error(err),
			zap.String("email", logger.MaskEmail(user.Email)),
		)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Authenticate validates the email/password pair and opens a new session.
// Unknown email, password mismatch, and password login against a federated
// account all fail with the identical ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, *security.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := s.pool.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, pair, nil
}

// openSession mints a token pair and records the refresh token's hash.
func (s *AuthService) openSession(ctx context.Context, userID int64) (*security.TokenPair, error) {
	pair, err := s.issuer.GeneratePair(userID)
	if err != nil {
		return nil, fmt.Errorf("generate token pair: %w", err)
	}

	if err := s.store.Append(ctx, userID, pair.RefreshToken); err != nil {
		return nil, err
	}

	return pair, nil
}

// Refresh rotates the presented refresh token for a fresh pair. The
// rotation is a single storage write; a token missing from the stored list
// fails with ErrUnauthorized.
func (s *AuthService) Refresh(ctx context.Context, userID int64, refreshToken string) (*security.TokenPair, error) {
	pair, err := s.issuer.GeneratePair(userID)
	if err != nil {
		return nil, fmt.Errorf("generate token pair: %w", err)
	}

	if err := s.store.Rotate(ctx, userID, refreshToken, pair.RefreshToken); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the presented refresh token. Revoking a token that was
// already dropped from the list is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if err := s.store.Revoke(ctx, userID, refreshToken); err != nil {
		return err
	}

	event := domain.SessionRevokedEvent{
		UserID:    userID,
		RevokedAt: time.Now().UTC(),
		Reason:    "logout",
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked event failed", zap.Error(err))
	}

	return nil
}
