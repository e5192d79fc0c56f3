package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

var (
	// ErrUserTypeExists indicates a user type with the provided name already
	// exists for the company.
	ErrUserTypeExists = errors.New("user type already exists")
	// ErrUserTypeNotFound is returned when the referenced user type does not exist.
	ErrUserTypeNotFound = errors.New("user type not found")
	// ErrCompanyMismatch indicates the referenced records belong to different
	// tenants.
	ErrCompanyMismatch = errors.New("record belongs to a different company")
)

// SidebarModuleInput is one incoming sidebar module definition.
type SidebarModuleInput struct {
	ModuleID    string
	Enabled     bool
	Permissions []string
}

// CreateUserTypeInput captures the payload for creating a user type.
type CreateUserTypeInput struct {
	CompanyID      string
	Name           string
	DisplayName    string
	Description    *string
	Color          *string
	SidebarModules []SidebarModuleInput
}

// UpdateUserTypeInput captures the payload for updating a user type.
type UpdateUserTypeInput struct {
	ID             string
	Name           *string
	DisplayName    *string
	Description    *string
	Color          *string
	SidebarModules []SidebarModuleInput
}

// AssignUserTypeInput switches a company user to a different user type.
type AssignUserTypeInput struct {
	CompanyUserID string
	UserTypeID    string
	CompanyID     string
}

// UserTypeService manages grant templates and their assignment to users.
type UserTypeService struct {
	userTypes    port.UserTypeRepository
	users        port.CompanyUserRepository
	entitlements *EntitlementService
	events       port.EventPublisher
	logger       *zap.Logger
}

// NewUserTypeService constructs a UserTypeService.
func NewUserTypeService(
	userTypes port.UserTypeRepository,
	users port.CompanyUserRepository,
	entitlements *EntitlementService,
	events port.EventPublisher,
	logger *zap.Logger,
) *UserTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserTypeService{
		userTypes:    userTypes,
		users:        users,
		entitlements: entitlements,
		events:       events,
		logger:       logger,
	}
}

// ListUserTypes returns the company's user types.
func (s *UserTypeService) ListUserTypes(ctx context.Context, companyID string) ([]domain.UserType, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, fmt.Errorf("company id is required")
	}
	return s.userTypes.ListByCompany(ctx, companyID)
}

// GetUserType loads one user type definition.
func (s *UserTypeService) GetUserType(ctx context.Context, id string) (*domain.UserType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("user type id is required")
	}

	userType, err := s.userTypes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserTypeNotFound
		}
		return nil, fmt.Errorf("get user type: %w", err)
	}

	return userType, nil
}

// CreateUserType provisions a new user type after validating its sidebar
// modules against the company's entitlement.
func (s *UserTypeService) CreateUserType(ctx context.Context, actorID string, input CreateUserTypeInput) (domain.UserType, error) {
	companyID := strings.TrimSpace(input.CompanyID)
	if companyID == "" {
		return domain.UserType{}, fmt.Errorf("company id is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.UserType{}, fmt.Errorf("user type name is required")
	}

	if existing, err := s.userTypes.GetByName(ctx, companyID, name); err == nil && existing != nil {
		return domain.UserType{}, ErrUserTypeExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.UserType{}, fmt.Errorf("lookup user type by name: %w", err)
	}

	modules, err := s.validateSidebarModules(ctx, companyID, input.SidebarModules)
	if err != nil {
		return domain.UserType{}, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = name
	}

	userType := domain.UserType{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		Name:           name,
		DisplayName:    displayName,
		Description:    trimOptional(input.Description),
		Color:          trimOptional(input.Color),
		SidebarModules: modules,
		CreatedAt:      time.Now().UTC(),
	}
	userType.UpdatedAt = userType.CreatedAt

	if err := s.userTypes.Create(ctx, userType); err != nil {
		return domain.UserType{}, fmt.Errorf("create user type: %w", err)
	}

	s.publishCreated(ctx, actorID, userType)

	return userType, nil
}

// UpdateUserType modifies an existing user type; nil fields stay untouched.
// A non-nil SidebarModules slice replaces the whole module list.
func (s *UserTypeService) UpdateUserType(ctx context.Context, actorID string, input UpdateUserTypeInput) (domain.UserType, error) {
	userType, err := s.GetUserType(ctx, input.ID)
	if err != nil {
		return domain.UserType{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return domain.UserType{}, fmt.Errorf("user type name cannot be empty")
		}
		if name != userType.Name {
			if existing, err := s.userTypes.GetByName(ctx, userType.CompanyID, name); err == nil && existing != nil {
				return domain.UserType{}, ErrUserTypeExists
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return domain.UserType{}, fmt.Errorf("lookup user type by name: %w", err)
			}
		}
		userType.Name = name
	}

	if input.DisplayName != nil {
		displayName := strings.TrimSpace(*input.DisplayName)
		if displayName != "" {
			userType.DisplayName = displayName
		}
	}
	if input.Description != nil {
		userType.Description = trimOptional(input.Description)
	}
	if input.Color != nil {
		userType.Color = trimOptional(input.Color)
	}

	// Validate the incoming module list before touching the row so a rejected
	// update leaves nothing behind.
	var modules []domain.SidebarModule
	if input.SidebarModules != nil {
		modules, err = s.validateSidebarModules(ctx, userType.CompanyID, input.SidebarModules)
		if err != nil {
			return domain.UserType{}, err
		}
	}

	if err := s.userTypes.Update(ctx, *userType); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.UserType{}, ErrUserTypeNotFound
		}
		return domain.UserType{}, fmt.Errorf("update user type: %w", err)
	}

	if input.SidebarModules != nil {
		if err := s.userTypes.ReplaceSidebarModules(ctx, userType.ID, modules); err != nil {
			return domain.UserType{}, fmt.Errorf("replace sidebar modules: %w", err)
		}
		userType.SidebarModules = modules
	}

	if s.events != nil {
		event := domain.UserTypeUpdatedEvent{
			EventID:    uuid.NewString(),
			CompanyID:  userType.CompanyID,
			UserTypeID: userType.ID,
			Name:       userType.Name,
			ActorID:    actorID,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.PublishUserTypeUpdated(ctx, event); err != nil {
			s.logger.Warn("failed to publish user type update event",
				zap.String("user_type_id", userType.ID),
				zap.Error(err),
			)
		}
	}

	return *userType, nil
}

// DeleteUserType removes a user type definition.
func (s *UserTypeService) DeleteUserType(ctx context.Context, actorID, id string) error {
	userType, err := s.GetUserType(ctx, id)
	if err != nil {
		return err
	}

	if err := s.userTypes.Delete(ctx, userType.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserTypeNotFound
		}
		return fmt.Errorf("delete user type: %w", err)
	}

	if s.events != nil {
		event := domain.UserTypeDeletedEvent{
			EventID:    uuid.NewString(),
			CompanyID:  userType.CompanyID,
			UserTypeID: userType.ID,
			ActorID:    actorID,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.PublishUserTypeDeleted(ctx, event); err != nil {
			s.logger.Warn("failed to publish user type delete event",
				zap.String("user_type_id", userType.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// AssignUserType switches a company user to the given user type. Both records
// must belong to the company named in the request.
func (s *UserTypeService) AssignUserType(ctx context.Context, actorID string, input AssignUserTypeInput) error {
	userType, err := s.GetUserType(ctx, input.UserTypeID)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, strings.TrimSpace(input.CompanyUserID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCompanyUserNotFound
		}
		return fmt.Errorf("get company user: %w", err)
	}

	companyID := strings.TrimSpace(input.CompanyID)
	if companyID != "" && (userType.CompanyID != companyID || user.CompanyID != companyID) {
		return ErrCompanyMismatch
	}
	if userType.CompanyID != user.CompanyID {
		return ErrCompanyMismatch
	}

	if err := s.users.AssignUserType(ctx, user.ID, userType.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCompanyUserNotFound
		}
		return fmt.Errorf("assign user type: %w", err)
	}

	if s.events != nil {
		event := domain.UserTypeAssignedEvent{
			EventID:       uuid.NewString(),
			CompanyID:     user.CompanyID,
			CompanyUserID: user.ID,
			UserTypeID:    userType.ID,
			AssignedBy:    actorID,
			AssignedAt:    time.Now().UTC(),
		}
		if err := s.events.PublishUserTypeAssigned(ctx, event); err != nil {
			s.logger.Warn("failed to publish user type assignment event",
				zap.String("company_user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// validateSidebarModules deduplicates the incoming modules and checks each
// module id against the company's availability projection. Permission entries
// stay opaque except when the module exposes sub-items, in which case each
// entry must be an entitled sub-item id.
func (s *UserTypeService) validateSidebarModules(ctx context.Context, companyID string, inputs []SidebarModuleInput) ([]domain.SidebarModule, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	available, err := s.entitlements.AvailableModules(ctx, companyID)
	if err != nil {
		return nil, err
	}

	availableByID := make(map[string]domain.AvailableModule, len(available))
	for _, module := range available {
		availableByID[module.ID] = module
	}

	modules := make([]domain.SidebarModule, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))

	for _, input := range inputs {
		moduleID := strings.TrimSpace(input.ModuleID)
		if moduleID == "" {
			return nil, fmt.Errorf("sidebar module id is required")
		}
		if _, exists := seen[moduleID]; exists {
			continue
		}
		seen[moduleID] = struct{}{}

		module, ok := availableByID[moduleID]
		if !ok {
			return nil, fmt.Errorf("module %q: %w", moduleID, domain.ErrNotEntitled)
		}

		permissions := make([]string, 0, len(input.Permissions))
		for _, permission := range input.Permissions {
			permission = strings.TrimSpace(permission)
			if permission == "" {
				continue
			}
			if !module.IsLeaf() {
				if _, ok := module.SubItem(permission); !ok {
					return nil, fmt.Errorf("permission %q of module %q: %w", permission, moduleID, domain.ErrNotEntitled)
				}
			}
			permissions = append(permissions, permission)
		}

		modules = append(modules, domain.SidebarModule{
			ModuleID:    moduleID,
			Enabled:     input.Enabled,
			Permissions: permissions,
		})
	}

	return modules, nil
}

func (s *UserTypeService) publishCreated(ctx context.Context, actorID string, userType domain.UserType) {
	if s.events == nil {
		return
	}

	event := domain.UserTypeCreatedEvent{
		EventID:    uuid.NewString(),
		CompanyID:  userType.CompanyID,
		UserTypeID: userType.ID,
		Name:       userType.Name,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.PublishUserTypeCreated(ctx, event); err != nil {
		s.logger.Warn("failed to publish user type create event",
			zap.String("user_type_id", userType.ID),
			zap.Error(err),
		)
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
