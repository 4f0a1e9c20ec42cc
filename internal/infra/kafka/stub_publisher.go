package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured, typically in development.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(topicUserRegistered, event.UserID, event.RegisteredAt, event)
	return nil
}

// PublishEmailConfirmed logs auth.email.confirmed events.
func (p *StubPublisher) PublishEmailConfirmed(_ context.Context, event domain.EmailConfirmedEvent) error {
	p.logEvent(topicEmailConfirmed, event.UserID, event.ConfirmedAt, event)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logEvent(topicSessionRevoked, event.UserID, event.RevokedAt, event)
	return nil
}
