package domain

import "time"

// SidebarModule is one module entry attached to a user type: whether the
// module shows up for users of that type and which identifiers are granted
// beneath it.
type SidebarModule struct {
	ModuleID    string
	Enabled     bool
	Permissions []string
}

// UserType is a reusable grant template a company assigns to its users
// (e.g. "HR Manager", "Support Agent").
type UserType struct {
	ID             string
	CompanyID      string
	Name           string
	DisplayName    string
	Description    *string
	Color          *string
	SidebarModules []SidebarModule
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
