package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/logger"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

// FederationService signs users in through the external identity provider.
// Accounts are matched by the provider's stable numeric id; a profile email
// colliding with an existing password account is rejected, never merged.
type FederationService struct {
	users    port.UserRepository
	provider port.ProfileProvider
	issuer   *security.TokenIssuer
	store    *RefreshTokenStore
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewFederationService constructs the federated login flow.
func NewFederationService(
	users port.UserRepository,
	provider port.ProfileProvider,
	issuer *security.TokenIssuer,
	store *RefreshTokenStore,
	events port.EventPublisher,
	log *zap.Logger,
) *FederationService {
	return &FederationService{
		users:    users,
		provider: provider,
		issuer:   issuer,
		store:    store,
		events:   events,
		logger:   log,
	}
}

// LoginWithCode exchanges the authorization code, resolves the profile to a
// local account (creating a federated one on first login), and opens a
// session. Provider failures map to ErrFederation and leave no partial
// user behind.
func (s *FederationService) LoginWithCode(ctx context.Context, code string) (*domain.User, *security.TokenPair, error) {
	accessToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("authorization code exchange failed", zap.Error(err))
		return nil, nil, ErrFederation
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		s.logger.Warn("provider profile fetch failed", zap.Error(err))
		return nil, nil, ErrFederation
	}

	user, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issuer.GeneratePair(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("generate token pair: %w", err)
	}
	if err := s.store.Append(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, pair, nil
}

// resolveUser finds the account bound to the provider id, creating a
// federated account on first login. The provider has verified the address,
// so new accounts start confirmed.
func (s *FederationService) resolveUser(ctx context.Context, profile *domain.ProviderProfile) (*domain.User, error) {
	user, err := s.users.GetByExternalID(ctx, profile.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup federated user: %w", err)
	}

	if _, err := s.users.GetByEmail(ctx, profile.Email); err == nil {
		return nil, ErrAccountConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	externalID := profile.ExternalID
	created, err := s.users.Create(ctx, domain.User{
		ExternalID:       &externalID,
		Email:            profile.Email,
		Name:             profile.Name,
		IsEmailConfirmed: true,
	})
	if err != nil {
		var dup *repository.DuplicateFieldError
		if errors.As(err, &dup) {
			return nil, ErrAccountConflict
		}
		return nil, fmt.Errorf("create federated user: %w", err)
	}

	event := domain.UserRegisteredEvent{
		UserID:       created.ID,
		Email:        created.Email,
		Name:         created.Name,
		Federated:    true,
		RegisteredAt: created.RegisteredAt,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed", zap.Error(err))
	}

	s.logger.Info("federated user created",
		zap.Int64("user_id", created.ID),
		zap.String("email", logger.MaskEmail(created.Email)),
	)

	return created, nil
}
