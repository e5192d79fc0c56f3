package domain

import "time"

// GrantChangedEvent is emitted whenever a company user's module grant list is
// replaced.
type GrantChangedEvent struct {
	EventID       string
	CompanyID     string
	CompanyUserID string
	Granted       []string
	ChangedBy     string
	ChangedAt     time.Time
	Metadata      map[string]any
}

// UserTypeCreatedEvent is emitted after a user type is provisioned.
type UserTypeCreatedEvent struct {
	EventID    string
	CompanyID  string
	UserTypeID string
	Name       string
	ActorID    string
	OccurredAt time.Time
	Metadata   map[string]any
}

// UserTypeUpdatedEvent is emitted after a user type definition changes.
type UserTypeUpdatedEvent struct {
	EventID    string
	CompanyID  string
	UserTypeID string
	Name       string
	ActorID    string
	OccurredAt time.Time
	Metadata   map[string]any
}

// UserTypeDeletedEvent is emitted after a user type is removed.
type UserTypeDeletedEvent struct {
	EventID    string
	CompanyID  string
	UserTypeID string
	ActorID    string
	OccurredAt time.Time
	Metadata   map[string]any
}

// UserTypeAssignedEvent is emitted when a company user is switched to a
// different user type.
type UserTypeAssignedEvent struct {
	EventID       string
	CompanyID     string
	CompanyUserID string
	UserTypeID    string
	AssignedBy    string
	AssignedAt    time.Time
	Metadata      map[string]any
}
