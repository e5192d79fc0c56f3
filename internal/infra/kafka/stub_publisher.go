package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, companyID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("company_id", companyID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishGrantChanged logs entitlements.grant.changed events.
func (p *StubPublisher) PublishGrantChanged(_ context.Context, event domain.GrantChangedEvent) error {
	payload := map[string]any{
		"company_id":      event.CompanyID,
		"company_user_id": event.CompanyUserID,
		"granted":         event.Granted,
		"changed_by":      event.ChangedBy,
		"changed_at":      event.ChangedAt,
		"metadata":        event.Metadata,
	}
	p.logEvent("entitlements.grant.changed", event.CompanyID, event.ChangedAt, payload)
	return nil
}

// PublishUserTypeCreated logs entitlements.user_type.created events.
func (p *StubPublisher) PublishUserTypeCreated(_ context.Context, event domain.UserTypeCreatedEvent) error {
	payload := map[string]any{
		"company_id":   event.CompanyID,
		"user_type_id": event.UserTypeID,
		"name":         event.Name,
		"actor_id":     event.ActorID,
		"occurred_at":  event.OccurredAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("entitlements.user_type.created", event.CompanyID, event.OccurredAt, payload)
	return nil
}

// PublishUserTypeUpdated logs entitlements.user_type.updated events.
func (p *StubPublisher) PublishUserTypeUpdated(_ context.Context, event domain.UserTypeUpdatedEvent) error {
	payload := map[string]any{
		"company_id":   event.CompanyID,
		"user_type_id": event.UserTypeID,
		"name":         event.Name,
		"actor_id":     event.ActorID,
		"occurred_at":  event.OccurredAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("entitlements.user_type.updated", event.CompanyID, event.OccurredAt, payload)
	return nil
}

// PublishUserTypeDeleted logs entitlements.user_type.deleted events.
func (p *StubPublisher) PublishUserTypeDeleted(_ context.Context, event domain.UserTypeDeletedEvent) error {
	payload := map[string]any{
		"company_id":   event.CompanyID,
		"user_type_id": event.UserTypeID,
		"actor_id":     event.ActorID,
		"occurred_at":  event.OccurredAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("entitlements.user_type.deleted", event.CompanyID, event.OccurredAt, payload)
	return nil
}

// PublishUserTypeAssigned logs entitlements.user_type.assigned events.
func (p *StubPublisher) PublishUserTypeAssigned(_ context.Context, event domain.UserTypeAssignedEvent) error {
	payload := map[string]any{
		"company_id":      event.CompanyID,
		"company_user_id": event.CompanyUserID,
		"user_type_id":    event.UserTypeID,
		"assigned_by":     event.AssignedBy,
		"assigned_at":     event.AssignedAt,
		"metadata":        event.Metadata,
	}
	p.logEvent("entitlements.user_type.assigned", event.CompanyID, event.AssignedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
