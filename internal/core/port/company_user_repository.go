package port

import (
	"context"

	"github.com/opscore/entitlement-service/internal/core/domain"
)

// CompanyUserRepository manages operator accounts and their module grants.
type CompanyUserRepository interface {
	Create(ctx context.Context, user domain.CompanyUser) error
	GetByID(ctx context.Context, id string) (*domain.CompanyUser, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.CompanyUser, error)
	AssignUserType(ctx context.Context, userID, userTypeID string) error
	ReplaceModuleGrants(ctx context.Context, userID string, identifiers []string) error
}
