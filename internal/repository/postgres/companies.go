package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

// CompanyRepository implements tenant persistence.
type CompanyRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCompanyRepository constructs a PostgreSQL-backed company repository.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a company and its initial allowed-module rows.
func (r *CompanyRepository) Create(ctx context.Context, company domain.Company) error {
	now := company.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("entitlements.companies").
		Columns("id", "name", "created_at", "updated_at").
		Values(company.ID, company.Name, now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert company sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert company: %w", err)
	}

	if len(company.AllowedModules) > 0 {
		if err := r.insertAllowedModules(ctx, company.ID, company.AllowedModules); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a company together with its allowed module ids.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	stmt, args, err := r.builder.Select("id", "name", "created_at", "updated_at").
		From("entitlements.companies").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select company sql: %w", err)
	}

	var company domain.Company
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}

	modules, err := r.allowedModules(ctx, id)
	if err != nil {
		return nil, err
	}
	company.AllowedModules = modules

	return &company, nil
}

// List retrieves all companies sorted by name, without module expansion.
func (r *CompanyRepository) List(ctx context.Context) ([]domain.Company, error) {
	stmt, args, err := r.builder.Select("id", "name", "created_at", "updated_at").
		From("entitlements.companies").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list companies sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies := make([]domain.Company, 0)
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	return companies, nil
}

// UpdateAllowedModules replaces the company's module-level entitlement rows.
func (r *CompanyRepository) UpdateAllowedModules(ctx context.Context, id string, moduleIDs []string) error {
	stmt, args, err := r.builder.Delete("entitlements.company_modules").
		Where(squirrel.Eq{"company_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete company modules sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete company modules: %w", err)
	}

	if len(moduleIDs) > 0 {
		if err := r.insertAllowedModules(ctx, id, moduleIDs); err != nil {
			return err
		}
	}

	stmt, args, err = r.builder.Update("entitlements.companies").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch company sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("touch company: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *CompanyRepository) insertAllowedModules(ctx context.Context, companyID string, moduleIDs []string) error {
	query := r.builder.Insert("entitlements.company_modules").
		Columns("company_id", "module_id")

	for _, moduleID := range moduleIDs {
		query = query.Values(companyID, moduleID)
	}

	stmt, args, err := query.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build insert company modules sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert company modules: %w", err)
	}

	return nil
}

func (r *CompanyRepository) allowedModules(ctx context.Context, companyID string) ([]string, error) {
	stmt, args, err := r.builder.Select("module_id").
		From("entitlements.company_modules").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("module_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build company modules sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query company modules: %w", err)
	}
	defer rows.Close()

	modules := make([]string, 0)
	for rows.Next() {
		var moduleID string
		if err := rows.Scan(&moduleID); err != nil {
			return nil, fmt.Errorf("scan company module: %w", err)
		}
		modules = append(modules, moduleID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company modules: %w", err)
	}

	return modules, nil
}

var _ port.CompanyRepository = (*CompanyRepository)(nil)
