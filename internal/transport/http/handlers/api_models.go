package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/usecase"
)

// Envelope is the uniform response wrapper all endpoints return. Data is set
// on success, Message on failure; TraceID correlates with access logs.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewDataResponse wraps a successful payload in the response envelope.
func NewDataResponse(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// NewErrorResponse creates a failure envelope with the trace ID from context.
func NewErrorResponse(c *gin.Context, message string) Envelope {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return Envelope{
		Success: false,
		Message: message,
		TraceID: traceIDStr,
	}
}

// SubItemPayload describes one catalog sub-item.
type SubItemPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModulePayload describes one catalog module with its ordered sub-items.
type ModulePayload struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	SubItems []SubItemPayload `json:"sub_items,omitempty"`
}

// CatalogResponse wraps the full module catalog.
type CatalogResponse struct {
	Modules []ModulePayload `json:"modules"`
}

// CompanyPayload summarizes a tenant record.
type CompanyPayload struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	AllowedModules []string `json:"allowed_modules"`
}

// CompanyResponse wraps a single company record.
type CompanyResponse struct {
	Company CompanyPayload `json:"company"`
}

// AvailableModulePayload is one module of the entitlement projection: the
// module id plus the sub-item ids the company may grant beneath it.
type AvailableModulePayload struct {
	ModuleID string   `json:"module_id"`
	Name     string   `json:"name"`
	SubItems []string `json:"sub_items"`
}

// EntitlementResponse wraps a company's available module projection.
type EntitlementResponse struct {
	CompanyID        string                   `json:"company_id"`
	AvailableModules []AvailableModulePayload `json:"available_modules"`
}

// EntitlementReplaceRequest carries a full replacement entitlement set.
type EntitlementReplaceRequest struct {
	ModuleIDs        []string            `json:"module_ids" binding:"required"`
	SubItemsByModule map[string][]string `json:"sub_items_by_module"`
}

// SidebarModulePayload is one sidebar module entry on a user type.
type SidebarModulePayload struct {
	ModuleID    string   `json:"module_id" binding:"required"`
	Enabled     bool     `json:"enabled"`
	Permissions []string `json:"permissions"`
}

// UserTypeCreateRequest defines the payload for creating a user type.
type UserTypeCreateRequest struct {
	CompanyID      string                 `json:"company_id" binding:"required"`
	Name           string                 `json:"name" binding:"required"`
	DisplayName    string                 `json:"display_name"`
	Description    *string                `json:"description,omitempty"`
	Color          *string                `json:"color,omitempty"`
	SidebarModules []SidebarModulePayload `json:"sidebar_modules"`
}

// UserTypeUpdateRequest defines the payload for updating a user type.
// Nil fields are left untouched; a non-nil sidebar module list is replaced
// wholesale.
type UserTypeUpdateRequest struct {
	Name           *string                `json:"name,omitempty"`
	DisplayName    *string                `json:"display_name,omitempty"`
	Description    *string                `json:"description,omitempty"`
	Color          *string                `json:"color,omitempty"`
	SidebarModules []SidebarModulePayload `json:"sidebar_modules,omitempty"`
}

// UserTypePayload summarizes a user type entity.
type UserTypePayload struct {
	ID             string                 `json:"id"`
	CompanyID      string                 `json:"company_id"`
	Name           string                 `json:"name"`
	DisplayName    string                 `json:"display_name"`
	Description    *string                `json:"description,omitempty"`
	Color          *string                `json:"color,omitempty"`
	SidebarModules []SidebarModulePayload `json:"sidebar_modules"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// UserTypeResponse wraps a single user type.
type UserTypeResponse struct {
	UserType UserTypePayload `json:"user_type"`
}

// UserTypeListResponse wraps a company's user types.
type UserTypeListResponse struct {
	UserTypes []UserTypePayload `json:"user_types"`
}

// AssignUserTypeRequest switches a company user to a different user type.
type AssignUserTypeRequest struct {
	UserTypeID string `json:"user_type_id" binding:"required"`
	CompanyID  string `json:"company_id" binding:"required"`
}

// CompanyUserCreateRequest defines the payload for provisioning an operator
// account.
type CompanyUserCreateRequest struct {
	CompanyID   string  `json:"company_id" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	DisplayName string  `json:"display_name"`
	UserTypeID  *string `json:"user_type_id,omitempty"`
}

// CompanyUserPayload summarizes an operator account.
type CompanyUserPayload struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	UserTypeID   *string   `json:"user_type_id,omitempty"`
	ModuleGrants []string  `json:"module_grants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CompanyUserResponse wraps a single operator account.
type CompanyUserResponse struct {
	User CompanyUserPayload `json:"user"`
}

// CompanyUserListResponse wraps a tenant's operator accounts.
type CompanyUserListResponse struct {
	Users []CompanyUserPayload `json:"users"`
	Total int                  `json:"total"`
}

// ModuleGrantsUpdateRequest replaces a user's flat granted identifier list.
type ModuleGrantsUpdateRequest struct {
	Granted []string `json:"granted"`
}

// ModuleGrantsResponse returns the flat granted identifier list after a read
// or write.
type ModuleGrantsResponse struct {
	CompanyUserID string   `json:"company_user_id"`
	Granted       []string `json:"granted"`
}

// ToggleRequest carries one checkbox interaction. ID takes precedence;
// ModuleID is accepted for callers that distinguish parent clicks.
type ToggleRequest struct {
	ID       string `json:"id"`
	ModuleID string `json:"module_id"`
}

// SubItemSelectionPayload is one selectable row in the resolved view model.
type SubItemSelectionPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// ModuleSelectionPayload is one module row with its tri-state status.
type ModuleSelectionPayload struct {
	ID       string                    `json:"id"`
	Name     string                    `json:"name"`
	Status   string                    `json:"status"`
	SubItems []SubItemSelectionPayload `json:"sub_items,omitempty"`
}

// SelectionResponse is the resolved selection view model for one user.
type SelectionResponse struct {
	CompanyUserID string                   `json:"company_user_id"`
	Modules       []ModuleSelectionPayload `json:"modules"`
	Granted       []string                 `json:"granted"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newModulePayload(module domain.ModuleDescriptor) ModulePayload {
	payload := ModulePayload{ID: module.ID, Name: module.Name}
	for _, sub := range module.SubItems {
		payload.SubItems = append(payload.SubItems, SubItemPayload{ID: sub.ID, Name: sub.Name})
	}
	return payload
}

func newCompanyPayload(company domain.Company) CompanyPayload {
	allowed := make([]string, len(company.AllowedModules))
	copy(allowed, company.AllowedModules)

	return CompanyPayload{
		ID:             company.ID,
		Name:           company.Name,
		AllowedModules: allowed,
	}
}

func newEntitlementResponse(companyID string, available []domain.AvailableModule) EntitlementResponse {
	response := EntitlementResponse{
		CompanyID:        companyID,
		AvailableModules: make([]AvailableModulePayload, 0, len(available)),
	}

	for _, module := range available {
		payload := AvailableModulePayload{
			ModuleID: module.ID,
			Name:     module.Name,
			SubItems: make([]string, 0, len(module.SubItems)),
		}
		for _, sub := range module.SubItems {
			payload.SubItems = append(payload.SubItems, sub.ID)
		}
		response.AvailableModules = append(response.AvailableModules, payload)
	}

	return response
}

func newUserTypePayload(userType domain.UserType) UserTypePayload {
	payload := UserTypePayload{
		ID:             userType.ID,
		CompanyID:      userType.CompanyID,
		Name:           userType.Name,
		DisplayName:    userType.DisplayName,
		Description:    userType.Description,
		Color:          userType.Color,
		SidebarModules: make([]SidebarModulePayload, 0, len(userType.SidebarModules)),
		CreatedAt:      userType.CreatedAt,
		UpdatedAt:      userType.UpdatedAt,
	}

	for _, module := range userType.SidebarModules {
		permissions := make([]string, len(module.Permissions))
		copy(permissions, module.Permissions)
		payload.SidebarModules = append(payload.SidebarModules, SidebarModulePayload{
			ModuleID:    module.ModuleID,
			Enabled:     module.Enabled,
			Permissions: permissions,
		})
	}

	return payload
}

func newCompanyUserPayload(user domain.CompanyUser) CompanyUserPayload {
	grants := make([]string, len(user.ModuleGrants))
	copy(grants, user.ModuleGrants)

	return CompanyUserPayload{
		ID:           user.ID,
		CompanyID:    user.CompanyID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		UserTypeID:   user.UserTypeID,
		ModuleGrants: grants,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func newSelectionResponse(view usecase.SelectionView) SelectionResponse {
	response := SelectionResponse{
		CompanyUserID: view.CompanyUserID,
		Modules:       make([]ModuleSelectionPayload, 0, len(view.Modules)),
		Granted:       view.Granted,
	}
	if response.Granted == nil {
		response.Granted = []string{}
	}

	for _, module := range view.Modules {
		payload := ModuleSelectionPayload{
			ID:     module.ID,
			Name:   module.Name,
			Status: module.Status.String(),
		}
		for _, sub := range module.SubItems {
			payload.SubItems = append(payload.SubItems, SubItemSelectionPayload{
				ID:       sub.ID,
				Name:     sub.Name,
				Selected: sub.Selected,
			})
		}
		response.Modules = append(response.Modules, payload)
	}

	return response
}

func newSidebarModuleInputs(payloads []SidebarModulePayload) []usecase.SidebarModuleInput {
	if payloads == nil {
		return nil
	}

	inputs := make([]usecase.SidebarModuleInput, 0, len(payloads))
	for _, payload := range payloads {
		permissions := make([]string, 0, len(payload.Permissions))
		for _, permission := range payload.Permissions {
			trimmed := strings.TrimSpace(permission)
			if trimmed != "" {
				permissions = append(permissions, trimmed)
			}
		}
		inputs = append(inputs, usecase.SidebarModuleInput{
			ModuleID:    strings.TrimSpace(payload.ModuleID),
			Enabled:     payload.Enabled,
			Permissions: permissions,
		})
	}

	return inputs
}
