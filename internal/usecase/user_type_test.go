package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/repository"
)

type userTypeRepoMock struct {
	userTypes     map[string]domain.UserType
	byName        map[string]domain.UserType
	createErr     error
	replaceCalls  int
	replacedWith  []domain.SidebarModule
}

func (m *userTypeRepoMock) nameKey(companyID, name string) string {
	return companyID + "/" + name
}

func (m *userTypeRepoMock) Create(_ context.Context, userType domain.UserType) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.userTypes == nil {
		m.userTypes = make(map[string]domain.UserType)
	}
	if m.byName == nil {
		m.byName = make(map[string]domain.UserType)
	}
	m.userTypes[userType.ID] = userType
	m.byName[m.nameKey(userType.CompanyID, userType.Name)] = userType
	return nil
}

func (m *userTypeRepoMock) GetByID(_ context.Context, id string) (*domain.UserType, error) {
	if userType, ok := m.userTypes[id]; ok {
		return &userType, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userTypeRepoMock) GetByName(_ context.Context, companyID, name string) (*domain.UserType, error) {
	if userType, ok := m.byName[m.nameKey(companyID, name)]; ok {
		return &userType, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userTypeRepoMock) ListByCompany(_ context.Context, companyID string) ([]domain.UserType, error) {
	userTypes := make([]domain.UserType, 0, len(m.userTypes))
	for _, userType := range m.userTypes {
		if userType.CompanyID == companyID {
			userTypes = append(userTypes, userType)
		}
	}
	return userTypes, nil
}

func (m *userTypeRepoMock) Update(_ context.Context, userType domain.UserType) error {
	if _, exists := m.userTypes[userType.ID]; !exists {
		return repository.ErrNotFound
	}
	m.userTypes[userType.ID] = userType
	m.byName[m.nameKey(userType.CompanyID, userType.Name)] = userType
	return nil
}

func (m *userTypeRepoMock) Delete(_ context.Context, id string) error {
	userType, exists := m.userTypes[id]
	if !exists {
		return repository.ErrNotFound
	}
	delete(m.userTypes, id)
	delete(m.byName, m.nameKey(userType.CompanyID, userType.Name))
	return nil
}

func (m *userTypeRepoMock) ReplaceSidebarModules(_ context.Context, userTypeID string, modules []domain.SidebarModule) error {
	if _, exists := m.userTypes[userTypeID]; !exists {
		return repository.ErrNotFound
	}
	m.replaceCalls++
	m.replacedWith = modules
	userType := m.userTypes[userTypeID]
	userType.SidebarModules = modules
	m.userTypes[userTypeID] = userType
	return nil
}

func fixtureUserTypeService(t *testing.T, userTypes *userTypeRepoMock, users *companyUserRepoMock, events *eventPublisherMock) *UserTypeService {
	t.Helper()

	entitlements := &entitlementRepoMock{sets: map[string]domain.EntitlementSet{
		"co-1": domain.NewEntitlementSet("co-1", []string{"hr", "settings"}, map[string][]string{
			"hr": {"payroll", "attendance"},
		}),
	}}

	service := fixtureEntitlementService(t, &companyRepoMock{}, entitlements)
	return NewUserTypeService(userTypes, users, service, events, nil)
}

// Tests

func TestUserTypeService_CreateUserType_Success(t *testing.T) {
	userTypes := &userTypeRepoMock{}
	events := &eventPublisherMock{}
	service := fixtureUserTypeService(t, userTypes, &companyUserRepoMock{}, events)

	input := CreateUserTypeInput{
		CompanyID:   "co-1",
		Name:        "hr-manager",
		DisplayName: "HR Manager",
		SidebarModules: []SidebarModuleInput{
			{ModuleID: "hr", Enabled: true, Permissions: []string{"payroll", "attendance"}},
			{ModuleID: "settings", Enabled: true},
		},
	}

	created, err := service.CreateUserType(context.Background(), "admin-1", input)
	if err != nil {
		t.Fatalf("CreateUserType failed: %v", err)
	}

	if created.Name != "hr-manager" {
		t.Errorf("expected name 'hr-manager', got %s", created.Name)
	}
	if len(created.SidebarModules) != 2 {
		t.Errorf("expected 2 sidebar modules, got %d", len(created.SidebarModules))
	}
	if _, err := userTypes.GetByName(context.Background(), "co-1", "hr-manager"); err != nil {
		t.Errorf("expected user type persisted by name: %v", err)
	}
	if len(events.created) != 1 {
		t.Errorf("expected 1 create event, got %d", len(events.created))
	}
}

func TestUserTypeService_CreateUserType_DuplicateName(t *testing.T) {
	userTypes := &userTypeRepoMock{
		byName: map[string]domain.UserType{
			"co-1/hr-manager": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
		},
	}
	service := fixtureUserTypeService(t, userTypes, &companyUserRepoMock{}, nil)

	input := CreateUserTypeInput{CompanyID: "co-1", Name: "hr-manager"}

	_, err := service.CreateUserType(context.Background(), "admin-1", input)
	if !errors.Is(err, ErrUserTypeExists) {
		t.Fatalf("expected ErrUserTypeExists, got %v", err)
	}
}

func TestUserTypeService_CreateUserType_UnentitledModuleRejected(t *testing.T) {
	service := fixtureUserTypeService(t, &userTypeRepoMock{}, &companyUserRepoMock{}, nil)

	input := CreateUserTypeInput{
		CompanyID: "co-1",
		Name:      "sales-lead",
		SidebarModules: []SidebarModuleInput{
			{ModuleID: "sales", Enabled: true},
		},
	}

	_, err := service.CreateUserType(context.Background(), "admin-1", input)
	if !errors.Is(err, domain.ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled, got %v", err)
	}
}

func TestUserTypeService_CreateUserType_UnentitledPermissionRejected(t *testing.T) {
	service := fixtureUserTypeService(t, &userTypeRepoMock{}, &companyUserRepoMock{}, nil)

	input := CreateUserTypeInput{
		CompanyID: "co-1",
		Name:      "recruiter",
		SidebarModules: []SidebarModuleInput{
			{ModuleID: "hr", Enabled: true, Permissions: []string{"recruitment"}},
		},
	}

	_, err := service.CreateUserType(context.Background(), "admin-1", input)
	if !errors.Is(err, domain.ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled for sub-item outside the entitlement, got %v", err)
	}
}

func TestUserTypeService_UpdateUserType_ReplacesSidebarModules(t *testing.T) {
	userTypes := &userTypeRepoMock{
		userTypes: map[string]domain.UserType{
			"ut-1": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager", DisplayName: "HR Manager"},
		},
		byName: map[string]domain.UserType{
			"co-1/hr-manager": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
		},
	}
	service := fixtureUserTypeService(t, userTypes, &companyUserRepoMock{}, &eventPublisherMock{})

	input := UpdateUserTypeInput{
		ID: "ut-1",
		SidebarModules: []SidebarModuleInput{
			{ModuleID: "hr", Enabled: true, Permissions: []string{"payroll"}},
		},
	}

	updated, err := service.UpdateUserType(context.Background(), "admin-1", input)
	if err != nil {
		t.Fatalf("UpdateUserType failed: %v", err)
	}

	if userTypes.replaceCalls != 1 {
		t.Errorf("expected 1 sidebar replacement, got %d", userTypes.replaceCalls)
	}
	if len(updated.SidebarModules) != 1 || updated.SidebarModules[0].ModuleID != "hr" {
		t.Errorf("unexpected sidebar modules: %+v", updated.SidebarModules)
	}
}

func TestUserTypeService_UpdateUserType_RejectedModulesLeaveRowUntouched(t *testing.T) {
	userTypes := &userTypeRepoMock{
		userTypes: map[string]domain.UserType{
			"ut-1": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager", DisplayName: "HR Manager"},
		},
		byName: map[string]domain.UserType{
			"co-1/hr-manager": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
		},
	}
	service := fixtureUserTypeService(t, userTypes, &companyUserRepoMock{}, nil)

	newName := "renamed"
	input := UpdateUserTypeInput{
		ID:   "ut-1",
		Name: &newName,
		SidebarModules: []SidebarModuleInput{
			{ModuleID: "sales", Enabled: true},
		},
	}

	_, err := service.UpdateUserType(context.Background(), "admin-1", input)
	if !errors.Is(err, domain.ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled, got %v", err)
	}

	stored, err := userTypes.GetByID(context.Background(), "ut-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Name != "hr-manager" {
		t.Errorf("expected name unchanged after rejected update, got %q", stored.Name)
	}
	if userTypes.replaceCalls != 0 {
		t.Errorf("expected no sidebar replacement, got %d", userTypes.replaceCalls)
	}
}

func TestUserTypeService_UpdateUserType_DuplicateNameRejected(t *testing.T) {
	userTypes := &userTypeRepoMock{
		userTypes: map[string]domain.UserType{
			"ut-1": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
			"ut-2": {ID: "ut-2", CompanyID: "co-1", Name: "viewer"},
		},
		byName: map[string]domain.UserType{
			"co-1/hr-manager": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
			"co-1/viewer":     {ID: "ut-2", CompanyID: "co-1", Name: "viewer"},
		},
	}
	service := fixtureUserTypeService(t, userTypes, &companyUserRepoMock{}, nil)

	newName := "viewer"
	input := UpdateUserTypeInput{ID: "ut-1", Name: &newName}

	_, err := service.UpdateUserType(context.Background(), "admin-1", input)
	if !errors.Is(err, ErrUserTypeExists) {
		t.Fatalf("expected ErrUserTypeExists, got %v", err)
	}
}

func TestUserTypeService_DeleteUserType_Success(t *testing.T) {
	userTypes := &userTypeRepoMock{
		userTypes: map[string]domain.UserType{
			"ut-1": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
		},
		byName: map[string]domain.UserType{
			"co-1/hr-manager": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
		},
	}
	events := &eventPublisherMock{}
	service := fixtureUserTypeService(t, userTypes, &companyUserRepoMock{}, events)

	if err := service.DeleteUserType(context.Background(), "admin-1", "ut-1"); err != nil {
		t.Fatalf("DeleteUserType failed: %v", err)
	}

	if _, err := userTypes.GetByID(context.Background(), "ut-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected user type deleted, got %v", err)
	}
	if len(events.deleted) != 1 {
		t.Errorf("expected 1 delete event, got %d", len(events.deleted))
	}
}

func TestUserTypeService_DeleteUserType_NotFound(t *testing.T) {
	service := fixtureUserTypeService(t, &userTypeRepoMock{}, &companyUserRepoMock{}, nil)

	err := service.DeleteUserType(context.Background(), "admin-1", "ghost")
	if !errors.Is(err, ErrUserTypeNotFound) {
		t.Fatalf("expected ErrUserTypeNotFound, got %v", err)
	}
}

func TestUserTypeService_AssignUserType_Success(t *testing.T) {
	userTypes := &userTypeRepoMock{
		userTypes: map[string]domain.UserType{
			"ut-1": {ID: "ut-1", CompanyID: "co-1", Name: "hr-manager"},
		},
	}
	users := &companyUserRepoMock{
		users: map[string]domain.CompanyUser{
			"user-1": {ID: "user-1", CompanyID: "co-1"},
		},
	}
	events := &eventPublisherMock{}
	service := fixtureUserTypeService(t, userTypes, users, events)

	input := AssignUserTypeInput{CompanyUserID: "user-1", UserTypeID: "ut-1", CompanyID: "co-1"}

	if err := service.AssignUserType(context.Background(), "admin-1", input); err != nil {
		t.Fatalf("AssignUserType failed: %v", err)
	}

	if users.assigned["user-1"] != "ut-1" {
		t.Errorf("expected user assigned to ut-1, got %q", users.assigned["user-1"])
	}
	if len(events.assigned) != 1 {
		t.Errorf("expected 1 assignment event, got %d", len(events.assigned))
	}
}

func TestUserTypeService_AssignUserType_CompanyMismatch(t *testing.T) {
	userTypes := &userTypeRepoMock{
		userTypes: map[string]domain.UserType{
			"ut-1": {ID: "ut-1", CompanyID: "co-2", Name: "hr-manager"},
		},
	}
	users := &companyUserRepoMock{
		users: map[string]domain.CompanyUser{
			"user-1": {ID: "user-1", CompanyID: "co-1"},
		},
	}
	service := fixtureUserTypeService(t, userTypes, users, nil)

	input := AssignUserTypeInput{CompanyUserID: "user-1", UserTypeID: "ut-1"}

	err := service.AssignUserType(context.Background(), "admin-1", input)
	if !errors.Is(err, ErrCompanyMismatch) {
		t.Fatalf("expected ErrCompanyMismatch, got %v", err)
	}
}
