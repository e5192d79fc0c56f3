package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

// UserTypeRepository implements user type persistence. Sidebar modules live
// in a child table with permissions serialized as JSONB.
type UserTypeRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserTypeRepository constructs a PostgreSQL-backed user type repository.
func NewUserTypeRepository(pool *pgxpool.Pool) *UserTypeRepository {
	return &UserTypeRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a user type and its sidebar module rows.
func (r *UserTypeRepository) Create(ctx context.Context, userType domain.UserType) error {
	now := userType.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("entitlements.user_types").
		Columns("id", "company_id", "name", "display_name", "description", "color", "created_at", "updated_at").
		Values(userType.ID, userType.CompanyID, userType.Name, userType.DisplayName, userType.Description, userType.Color, now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user type sql: %w", err)
	}

	return withTx(ctx, r.exec, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert user type: %w", err)
		}

		if len(userType.SidebarModules) > 0 {
			if err := r.insertSidebarModules(ctx, tx, userType.ID, userType.SidebarModules); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByID retrieves a user type with its sidebar modules.
func (r *UserTypeRepository) GetByID(ctx context.Context, id string) (*domain.UserType, error) {
	stmt, args, err := r.selectUserTypes().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user type sql: %w", err)
	}

	userType, err := r.scanUserType(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}

	modules, err := r.sidebarModules(ctx, id)
	if err != nil {
		return nil, err
	}
	userType.SidebarModules = modules

	return userType, nil
}

// GetByName retrieves a user type by its company-scoped unique name.
func (r *UserTypeRepository) GetByName(ctx context.Context, companyID, name string) (*domain.UserType, error) {
	stmt, args, err := r.selectUserTypes().
		Where(squirrel.Eq{"company_id": companyID, "name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user type by name sql: %w", err)
	}

	userType, err := r.scanUserType(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}

	modules, err := r.sidebarModules(ctx, userType.ID)
	if err != nil {
		return nil, err
	}
	userType.SidebarModules = modules

	return userType, nil
}

// ListByCompany returns all user types for a company sorted by name, sidebar
// modules included.
func (r *UserTypeRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.UserType, error) {
	stmt, args, err := r.selectUserTypes().
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user types sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user types: %w", err)
	}
	defer rows.Close()

	userTypes := make([]domain.UserType, 0)
	for rows.Next() {
		userType, err := r.scanUserType(rows)
		if err != nil {
			return nil, err
		}
		userTypes = append(userTypes, *userType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user types: %w", err)
	}

	for i := range userTypes {
		modules, err := r.sidebarModules(ctx, userTypes[i].ID)
		if err != nil {
			return nil, err
		}
		userTypes[i].SidebarModules = modules
	}

	return userTypes, nil
}

// Update modifies the user type row itself; sidebar modules are replaced
// separately via ReplaceSidebarModules.
func (r *UserTypeRepository) Update(ctx context.Context, userType domain.UserType) error {
	stmt, args, err := r.builder.Update("entitlements.user_types").
		Set("name", userType.Name).
		Set("display_name", userType.DisplayName).
		Set("description", userType.Description).
		Set("color", userType.Color).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userType.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user type sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user type: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a user type (sidebar module rows cascade via FK).
func (r *UserTypeRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("entitlements.user_types").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user type sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user type: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ReplaceSidebarModules swaps the full sidebar module list for the user type.
// Delete and insert run in one transaction so a failed write keeps the
// previous list intact.
func (r *UserTypeRepository) ReplaceSidebarModules(ctx context.Context, userTypeID string, modules []domain.SidebarModule) error {
	stmt, args, err := r.builder.Delete("entitlements.user_type_modules").
		Where(squirrel.Eq{"user_type_id": userTypeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete sidebar modules sql: %w", err)
	}

	return withTx(ctx, r.exec, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete sidebar modules: %w", err)
		}

		if len(modules) == 0 {
			return nil
		}

		return r.insertSidebarModules(ctx, tx, userTypeID, modules)
	})
}

func (r *UserTypeRepository) insertSidebarModules(ctx context.Context, exec pgExecutor, userTypeID string, modules []domain.SidebarModule) error {
	query := r.builder.Insert("entitlements.user_type_modules").
		Columns("user_type_id", "module_id", "enabled", "permissions", "position")

	for i, module := range modules {
		permissions, err := json.Marshal(module.Permissions)
		if err != nil {
			return fmt.Errorf("marshal permissions for module %q: %w", module.ModuleID, err)
		}
		query = query.Values(userTypeID, module.ModuleID, module.Enabled, permissions, i)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert sidebar modules sql: %w", err)
	}

	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert sidebar modules: %w", err)
	}

	return nil
}

func (r *UserTypeRepository) sidebarModules(ctx context.Context, userTypeID string) ([]domain.SidebarModule, error) {
	stmt, args, err := r.builder.Select("module_id", "enabled", "permissions").
		From("entitlements.user_type_modules").
		Where(squirrel.Eq{"user_type_id": userTypeID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sidebar modules sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sidebar modules: %w", err)
	}
	defer rows.Close()

	modules := make([]domain.SidebarModule, 0)
	for rows.Next() {
		var (
			module      domain.SidebarModule
			permissions []byte
		)
		if err := rows.Scan(&module.ModuleID, &module.Enabled, &permissions); err != nil {
			return nil, fmt.Errorf("scan sidebar module: %w", err)
		}
		if len(permissions) > 0 {
			if err := json.Unmarshal(permissions, &module.Permissions); err != nil {
				return nil, fmt.Errorf("unmarshal permissions for module %q: %w", module.ModuleID, err)
			}
		}
		modules = append(modules, module)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sidebar modules: %w", err)
	}

	return modules, nil
}

func (r *UserTypeRepository) selectUserTypes() squirrel.SelectBuilder {
	return r.builder.Select("id", "company_id", "name", "display_name", "description", "color", "created_at", "updated_at").
		From("entitlements.user_types")
}

func (r *UserTypeRepository) scanUserType(row pgx.Row) (*domain.UserType, error) {
	var (
		userType    domain.UserType
		description sql.NullString
		color       sql.NullString
	)

	if err := row.Scan(
		&userType.ID,
		&userType.CompanyID,
		&userType.Name,
		&userType.DisplayName,
		&description,
		&color,
		&userType.CreatedAt,
		&userType.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user type: %w", err)
	}

	if description.Valid {
		userType.Description = &description.String
	}
	if color.Valid {
		userType.Color = &color.String
	}

	return &userType, nil
}

var _ port.UserTypeRepository = (*UserTypeRepository)(nil)
