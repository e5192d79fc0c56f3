package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/repository"
)

func newUserTypeRepoWithMock(t *testing.T) (*UserTypeRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	repo := &UserTypeRepository{
		exec:    mock,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	return repo, mock
}

func TestUserTypeRepository_Create(t *testing.T) {
	repo, mock := newUserTypeRepoWithMock(t)

	createdAt := time.Now().UTC()
	userType := domain.UserType{
		ID:          "ut-1",
		CompanyID:   "co-1",
		Name:        "hr-manager",
		DisplayName: "HR Manager",
		SidebarModules: []domain.SidebarModule{
			{ModuleID: "hr", Enabled: true, Permissions: []string{"payroll"}},
		},
		CreatedAt: createdAt,
	}

	mock.ExpectBegin()

	mock.ExpectExec(`INSERT INTO entitlements\.user_types`).
		WithArgs(
			userType.ID,
			userType.CompanyID,
			userType.Name,
			userType.DisplayName,
			nil,
			nil,
			createdAt,
			createdAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec(`INSERT INTO entitlements\.user_type_modules`).
		WithArgs("ut-1", "hr", true, []byte(`["payroll"]`), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCommit()

	if err := repo.Create(context.Background(), userType); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserTypeRepository_GetByID(t *testing.T) {
	repo, mock := newUserTypeRepoWithMock(t)

	now := time.Now().UTC()
	description := "Manages HR modules"

	rows := pgxmock.NewRows([]string{
		"id", "company_id", "name", "display_name", "description", "color", "created_at", "updated_at",
	}).AddRow(
		"ut-1", "co-1", "hr-manager", "HR Manager", description, nil, now, now,
	)

	mock.ExpectQuery(`SELECT .*FROM entitlements\.user_types`).
		WithArgs("ut-1").
		WillReturnRows(rows)

	moduleRows := pgxmock.NewRows([]string{"module_id", "enabled", "permissions"}).
		AddRow("hr", true, []byte(`["payroll","attendance"]`)).
		AddRow("settings", false, []byte(`[]`))

	mock.ExpectQuery(`SELECT .*FROM entitlements\.user_type_modules`).
		WithArgs("ut-1").
		WillReturnRows(moduleRows)

	userType, err := repo.GetByID(context.Background(), "ut-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if userType.Name != "hr-manager" {
		t.Fatalf("expected name hr-manager, got %s", userType.Name)
	}
	if userType.Description == nil || *userType.Description != description {
		t.Fatalf("expected description pointer populated")
	}
	if len(userType.SidebarModules) != 2 {
		t.Fatalf("expected 2 sidebar modules, got %d", len(userType.SidebarModules))
	}
	if got := userType.SidebarModules[0].Permissions; len(got) != 2 || got[0] != "payroll" {
		t.Fatalf("expected ordered permissions, got %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserTypeRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTypeRepoWithMock(t)

	rows := pgxmock.NewRows([]string{
		"id", "company_id", "name", "display_name", "description", "color", "created_at", "updated_at",
	})

	mock.ExpectQuery(`SELECT .*FROM entitlements\.user_types`).
		WithArgs("ghost").
		WillReturnRows(rows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserTypeRepository_Update_NotFound(t *testing.T) {
	repo, mock := newUserTypeRepoWithMock(t)

	mock.ExpectExec(`UPDATE entitlements\.user_types`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), domain.UserType{ID: "ghost", Name: "x", DisplayName: "x"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserTypeRepository_ReplaceSidebarModules(t *testing.T) {
	repo, mock := newUserTypeRepoWithMock(t)

	mock.ExpectBegin()

	mock.ExpectExec(`DELETE FROM entitlements\.user_type_modules`).
		WithArgs("ut-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	mock.ExpectExec(`INSERT INTO entitlements\.user_type_modules`).
		WithArgs("ut-1", "hr", true, []byte(`["attendance"]`), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCommit()

	modules := []domain.SidebarModule{
		{ModuleID: "hr", Enabled: true, Permissions: []string{"attendance"}},
	}
	if err := repo.ReplaceSidebarModules(context.Background(), "ut-1", modules); err != nil {
		t.Fatalf("ReplaceSidebarModules returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserTypeRepository_Delete(t *testing.T) {
	repo, mock := newUserTypeRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM entitlements\.user_types`).
		WithArgs("ut-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "ut-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
