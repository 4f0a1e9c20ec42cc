package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	topicUserRegistered = "auth.user.registered"
	topicEmailConfirmed = "auth.email.confirmed"
	topicSessionRevoked = "auth.session.revoked"
)

// EventPublisher serializes domain events into versioned envelopes and
// hands them to the async producer. Messages are keyed by user id so a
// user's events stay ordered within a partition.
type EventPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
	logger   *zap.Logger
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher constructs the Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, userID int64, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	key := strconv.FormatInt(userID, 10)

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    key,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.producer.TopicName(eventType),
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(body),
		Timestamp: envelope.Timestamp,
	}

	select {
	case p.producer.Producer().Input() <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s event: %w", eventType, ctx.Err())
	}
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	return p.publish(ctx, topicUserRegistered, event.UserID, event.RegisteredAt, event)
}

// PublishEmailConfirmed publishes auth.email.confirmed events.
func (p *EventPublisher) PublishEmailConfirmed(ctx context.Context, event domain.EmailConfirmedEvent) error {
	return p.publish(ctx, topicEmailConfirmed, event.UserID, event.ConfirmedAt, event)
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	return p.publish(ctx, topicSessionRevoked, event.UserID, event.RevokedAt, event)
}
