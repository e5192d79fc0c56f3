package port

import (
	"context"

	"github.com/opscore/entitlement-service/internal/core/domain"
)

// CompanyRepository manages tenant records.
type CompanyRepository interface {
	Create(ctx context.Context, company domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
	UpdateAllowedModules(ctx context.Context, id string, moduleIDs []string) error
}
