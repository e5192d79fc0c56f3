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

// EntitlementRepository persists per-company entitlement sets across the
// company_modules and company_module_sub_items tables.
type EntitlementRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEntitlementRepository constructs a PostgreSQL-backed entitlement repository.
func NewEntitlementRepository(pool *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByCompany loads the full entitlement set for a company. A company with
// no entitlement rows yields ErrNotFound rather than an empty set so callers
// can distinguish "never provisioned" from "provisioned with nothing".
func (r *EntitlementRepository) GetByCompany(ctx context.Context, companyID string) (*domain.EntitlementSet, error) {
	stmt, args, err := r.builder.Select("module_id", "updated_at").
		From("entitlements.company_modules").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("module_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entitlement modules sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query entitlement modules: %w", err)
	}
	defer rows.Close()

	moduleIDs := make([]string, 0)
	var updatedAt time.Time
	for rows.Next() {
		var moduleID string
		var rowUpdated time.Time
		if err := rows.Scan(&moduleID, &rowUpdated); err != nil {
			return nil, fmt.Errorf("scan entitlement module: %w", err)
		}
		moduleIDs = append(moduleIDs, moduleID)
		if rowUpdated.After(updatedAt) {
			updatedAt = rowUpdated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entitlement modules: %w", err)
	}

	if len(moduleIDs) == 0 {
		return nil, repository.ErrNotFound
	}

	stmt, args, err = r.builder.Select("module_id", "sub_item_id").
		From("entitlements.company_module_sub_items").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("module_id ASC", "sub_item_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entitlement sub-items sql: %w", err)
	}

	subRows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query entitlement sub-items: %w", err)
	}
	defer subRows.Close()

	subItemsByModule := make(map[string][]string)
	for subRows.Next() {
		var moduleID, subItemID string
		if err := subRows.Scan(&moduleID, &subItemID); err != nil {
			return nil, fmt.Errorf("scan entitlement sub-item: %w", err)
		}
		subItemsByModule[moduleID] = append(subItemsByModule[moduleID], subItemID)
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entitlement sub-items: %w", err)
	}

	set := domain.NewEntitlementSet(companyID, moduleIDs, subItemsByModule)
	set.UpdatedAt = updatedAt

	return &set, nil
}

// Replace overwrites a company's entitlement rows with the provided set. The
// delete and insert statements run in one transaction so a failure mid-way
// never strips a company of its entitlements.
func (r *EntitlementRepository) Replace(ctx context.Context, set domain.EntitlementSet) error {
	return withTx(ctx, r.exec, func(tx pgx.Tx) error {
		for _, table := range []string{"entitlements.company_module_sub_items", "entitlements.company_modules"} {
			stmt, args, err := r.builder.Delete(table).
				Where(squirrel.Eq{"company_id": set.CompanyID}).
				ToSql()
			if err != nil {
				return fmt.Errorf("build delete %s sql: %w", table, err)
			}
			if _, err := tx.Exec(ctx, stmt, args...); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}

		if len(set.ModuleIDs) == 0 {
			return nil
		}

		now := time.Now().UTC()
		moduleInsert := r.builder.Insert("entitlements.company_modules").
			Columns("company_id", "module_id", "updated_at")
		for moduleID := range set.ModuleIDs {
			moduleInsert = moduleInsert.Values(set.CompanyID, moduleID, now)
		}

		stmt, args, err := moduleInsert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert entitlement modules sql: %w", err)
		}
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert entitlement modules: %w", err)
		}

		rowCount := 0
		subInsert := r.builder.Insert("entitlements.company_module_sub_items").
			Columns("company_id", "module_id", "sub_item_id")
		for moduleID, subs := range set.SubItemsByModule {
			for subItemID := range subs {
				subInsert = subInsert.Values(set.CompanyID, moduleID, subItemID)
				rowCount++
			}
		}

		if rowCount == 0 {
			return nil
		}

		stmt, args, err = subInsert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert entitlement sub-items sql: %w", err)
		}
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert entitlement sub-items: %w", err)
		}

		return nil
	})
}

var _ port.EntitlementRepository = (*EntitlementRepository)(nil)
