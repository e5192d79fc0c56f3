package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

// CompanyUserRepository implements operator account persistence. Module
// grants keep their submitted order in a position column so the flat list
// round-trips byte for byte.
type CompanyUserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCompanyUserRepository constructs a PostgreSQL-backed company user repository.
func NewCompanyUserRepository(pool *pgxpool.Pool) *CompanyUserRepository {
	return &CompanyUserRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a company user record.
func (r *CompanyUserRepository) Create(ctx context.Context, user domain.CompanyUser) error {
	now := user.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("entitlements.company_users").
		Columns("id", "company_id", "email", "display_name", "user_type_id", "created_at", "updated_at").
		Values(user.ID, user.CompanyID, user.Email, user.DisplayName, user.UserTypeID, now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert company user sql: %w", err)
	}

	return withTx(ctx, r.exec, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert company user: %w", err)
		}

		if len(user.ModuleGrants) > 0 {
			if err := r.insertGrants(ctx, tx, user.ID, user.ModuleGrants); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByID retrieves a company user together with the ordered grant list.
func (r *CompanyUserRepository) GetByID(ctx context.Context, id string) (*domain.CompanyUser, error) {
	stmt, args, err := r.selectUsers().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select company user sql: %w", err)
	}

	user, err := r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}

	grants, err := r.grants(ctx, id)
	if err != nil {
		return nil, err
	}
	user.ModuleGrants = grants

	return user, nil
}

// ListByCompany returns the company's users sorted by display name, grants
// included.
func (r *CompanyUserRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.CompanyUser, error) {
	stmt, args, err := r.selectUsers().
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("display_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list company users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query company users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.CompanyUser, 0)
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company users: %w", err)
	}

	for i := range users {
		grants, err := r.grants(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].ModuleGrants = grants
	}

	return users, nil
}

// AssignUserType switches the user to a different user type.
func (r *CompanyUserRepository) AssignUserType(ctx context.Context, userID, userTypeID string) error {
	stmt, args, err := r.builder.Update("entitlements.company_users").
		Set("user_type_id", userTypeID).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build assign user type sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("assign user type: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ReplaceModuleGrants swaps the user's flat grant list. Last write wins;
// there is no version check, matching the legacy clients. Delete and insert
// run in one transaction so a failed write keeps the previous list intact.
func (r *CompanyUserRepository) ReplaceModuleGrants(ctx context.Context, userID string, identifiers []string) error {
	return withTx(ctx, r.exec, func(tx pgx.Tx) error {
		stmt, args, err := r.builder.Delete("entitlements.company_user_grants").
			Where(squirrel.Eq{"company_user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete grants sql: %w", err)
		}

		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}

		if len(identifiers) > 0 {
			if err := r.insertGrants(ctx, tx, userID, identifiers); err != nil {
				return err
			}
		}

		stmt, args, err = r.builder.Update("entitlements.company_users").
			Set("updated_at", time.Now().UTC()).
			Where(squirrel.Eq{"id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build touch company user sql: %w", err)
		}

		res, err := tx.Exec(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("touch company user: %w", err)
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}

		return nil
	})
}

func (r *CompanyUserRepository) insertGrants(ctx context.Context, exec pgExecutor, userID string, identifiers []string) error {
	query := r.builder.Insert("entitlements.company_user_grants").
		Columns("company_user_id", "identifier", "position")

	for i, identifier := range identifiers {
		query = query.Values(userID, identifier, i)
	}

	stmt, args, err := query.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build insert grants sql: %w", err)
	}

	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert grants: %w", err)
	}

	return nil
}

func (r *CompanyUserRepository) grants(ctx context.Context, userID string) ([]string, error) {
	stmt, args, err := r.builder.Select("identifier").
		From("entitlements.company_user_grants").
		Where(squirrel.Eq{"company_user_id": userID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build grants sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	identifiers := make([]string, 0)
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		identifiers = append(identifiers, identifier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	return identifiers, nil
}

func (r *CompanyUserRepository) selectUsers() squirrel.SelectBuilder {
	return r.builder.Select("id", "company_id", "email", "display_name", "user_type_id", "created_at", "updated_at").
		From("entitlements.company_users")
}

func (r *CompanyUserRepository) scanUser(row pgx.Row) (*domain.CompanyUser, error) {
	var (
		user       domain.CompanyUser
		userTypeID sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Email,
		&user.DisplayName,
		&userTypeID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan company user: %w", err)
	}

	if userTypeID.Valid {
		user.UserTypeID = &userTypeID.String
	}

	return &user, nil
}

var _ port.CompanyUserRepository = (*CompanyUserRepository)(nil)
