package domain

import "time"

// Company is a tenant of the operations suite.
type Company struct {
	ID             string
	Name           string
	AllowedModules []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CompanyUser is an operator account scoped to one company. ModuleGrants is
// the flat identifier list persisted for the user, in the legacy wire shape.
type CompanyUser struct {
	ID           string
	CompanyID    string
	Email        string
	DisplayName  string
	UserTypeID   *string
	ModuleGrants []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
