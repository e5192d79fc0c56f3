package port

import (
	"context"

	"github.com/opscore/entitlement-service/internal/core/domain"
)

// EntitlementRepository persists per-company entitlement sets.
type EntitlementRepository interface {
	GetByCompany(ctx context.Context, companyID string) (*domain.EntitlementSet, error)
	Replace(ctx context.Context, set domain.EntitlementSet) error
}

// EntitlementCache is a read-through cache in front of the repository.
// A miss surfaces as repository.ErrNotFound so callers fall back to the
// authoritative store.
type EntitlementCache interface {
	Get(ctx context.Context, companyID string) (*domain.EntitlementSet, error)
	Set(ctx context.Context, set domain.EntitlementSet) error
	Invalidate(ctx context.Context, companyID string) error
}
