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

// EmailVerificationService issues and redeems the short-lived tokens that
// gate email-bound features. The token embeds only the address; the user
// row is resolved at confirmation time.
type EmailVerificationService struct {
	users           port.UserRepository
	issuer          *security.TokenIssuer
	mailer          port.Mailer
	events          port.EventPublisher
	confirmationURL string
	logger          *zap.Logger
}

// NewEmailVerificationService constructs the verification flow around the
// mailer port and the token issuer.
func NewEmailVerificationService(
	users port.UserRepository,
	issuer *security.TokenIssuer,
	mailer port.Mailer,
	events port.EventPublisher,
	confirmationURL string,
	log *zap.Logger,
) *EmailVerificationService {
	return &EmailVerificationService{
		users:           users,
		issuer:          issuer,
		mailer:          mailer,
		events:          events,
		confirmationURL: confirmationURL,
		logger:          log,
	}
}

// SendConfirmationLink mints a verification token for the address and
// mails the confirmation link. Confirmation state is not touched.
func (s *EmailVerificationService) SendConfirmationLink(ctx context.Context, email string) error {
	token, err := s.issuer.IssueVerification(email)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	link := fmt.Sprintf("%s?token=%s", s.confirmationURL, token)
	body := fmt.Sprintf(
		"<p>Welcome! Please confirm your email address by clicking the link below.</p>"+
			"<p><a href=%q>Confirm email</a></p>"+
			"<p>The link expires soon; request a new one from the application if needed.</p>",
		link,
	)

	if err := s.mailer.Send(ctx, email, "Confirm your email", body); err != nil {
		return fmt.Errorf("send confirmation mail: %w", err)
	}

	s.logger.Info("confirmation link sent", zap.String("email", logger.MaskEmail(email)))
	return nil
}

// Confirm redeems a verification token and flips the account's
// confirmation flag. Confirming twice fails with ErrAlreadyConfirmed.
func (s *EmailVerificationService) Confirm(ctx context.Context, token string) error {
	email, err := s.issuer.ParseVerification(token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user by email: %w", err)
	}

	if user.IsEmailConfirmed {
		return ErrAlreadyConfirmed
	}

	if err := s.users.SetEmailConfirmed(ctx, user.ID); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	event := domain.EmailConfirmedEvent{
		UserID:      user.ID,
		Email:       user.Email,
		ConfirmedAt: time.Now().UTC(),
	}
	if err := s.events.PublishEmailConfirmed(ctx, event); err != nil {
		s.logger.Warn("publish email confirmed event failed", zap.Error(err))
	}

	return nil
}

// Resend mails a fresh confirmation link to the account's address. Already
// confirmed accounts fail with ErrAlreadyConfirmed.
func (s *EmailVerificationService) Resend(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if user.IsEmailConfirmed {
		return ErrAlreadyConfirmed
	}

	return s.SendConfirmationLink(ctx, user.Email)
}
