package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	CompanyID string           `json:"company_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, companyID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		CompanyID: companyID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(companyID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishGrantChanged publishes entitlements.grant.changed events.
func (p *EventPublisher) PublishGrantChanged(ctx context.Context, event domain.GrantChangedEvent) error {
	payload := struct {
		CompanyID     string         `json:"company_id"`
		CompanyUserID string         `json:"company_user_id"`
		Granted       []string       `json:"granted"`
		ChangedBy     string         `json:"changed_by"`
		ChangedAt     time.Time      `json:"changed_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		CompanyID:     event.CompanyID,
		CompanyUserID: event.CompanyUserID,
		Granted:       event.Granted,
		ChangedBy:     event.ChangedBy,
		ChangedAt:     event.ChangedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "entitlements.grant.changed", event.CompanyID, event.ChangedAt, payload)
}

// PublishUserTypeCreated publishes entitlements.user_type.created events.
func (p *EventPublisher) PublishUserTypeCreated(ctx context.Context, event domain.UserTypeCreatedEvent) error {
	payload := struct {
		CompanyID  string         `json:"company_id"`
		UserTypeID string         `json:"user_type_id"`
		Name       string         `json:"name"`
		ActorID    string         `json:"actor_id"`
		OccurredAt time.Time      `json:"occurred_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		CompanyID:  event.CompanyID,
		UserTypeID: event.UserTypeID,
		Name:       event.Name,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "entitlements.user_type.created", event.CompanyID, event.OccurredAt, payload)
}

// PublishUserTypeUpdated publishes entitlements.user_type.updated events.
func (p *EventPublisher) PublishUserTypeUpdated(ctx context.Context, event domain.UserTypeUpdatedEvent) error {
	payload := struct {
		CompanyID  string         `json:"company_id"`
		UserTypeID string         `json:"user_type_id"`
		Name       string         `json:"name"`
		ActorID    string         `json:"actor_id"`
		OccurredAt time.Time      `json:"occurred_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		CompanyID:  event.CompanyID,
		UserTypeID: event.UserTypeID,
		Name:       event.Name,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "entitlements.user_type.updated", event.CompanyID, event.OccurredAt, payload)
}

// PublishUserTypeDeleted publishes entitlements.user_type.deleted events.
func (p *EventPublisher) PublishUserTypeDeleted(ctx context.Context, event domain.UserTypeDeletedEvent) error {
	payload := struct {
		CompanyID  string         `json:"company_id"`
		UserTypeID string         `json:"user_type_id"`
		ActorID    string         `json:"actor_id"`
		OccurredAt time.Time      `json:"occurred_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		CompanyID:  event.CompanyID,
		UserTypeID: event.UserTypeID,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "entitlements.user_type.deleted", event.CompanyID, event.OccurredAt, payload)
}

// PublishUserTypeAssigned publishes entitlements.user_type.assigned events.
func (p *EventPublisher) PublishUserTypeAssigned(ctx context.Context, event domain.UserTypeAssignedEvent) error {
	payload := struct {
		CompanyID     string         `json:"company_id"`
		CompanyUserID string         `json:"company_user_id"`
		UserTypeID    string         `json:"user_type_id"`
		AssignedBy    string         `json:"assigned_by"`
		AssignedAt    time.Time      `json:"assigned_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		CompanyID:     event.CompanyID,
		CompanyUserID: event.CompanyUserID,
		UserTypeID:    event.UserTypeID,
		AssignedBy:    event.AssignedBy,
		AssignedAt:    event.AssignedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "entitlements.user_type.assigned", event.CompanyID, event.AssignedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
