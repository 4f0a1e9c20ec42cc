package port

import (
	"context"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishEmailConfirmed(ctx context.Context, event domain.EmailConfirmedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
}
