package port

import (
	"context"

	"github.com/opscore/entitlement-service/internal/core/domain"
)

// EventPublisher publishes entitlement domain events to the message bus.
type EventPublisher interface {
	PublishGrantChanged(ctx context.Context, event domain.GrantChangedEvent) error
	PublishUserTypeCreated(ctx context.Context, event domain.UserTypeCreatedEvent) error
	PublishUserTypeUpdated(ctx context.Context, event domain.UserTypeUpdatedEvent) error
	PublishUserTypeDeleted(ctx context.Context, event domain.UserTypeDeletedEvent) error
	PublishUserTypeAssigned(ctx context.Context, event domain.UserTypeAssignedEvent) error
}
