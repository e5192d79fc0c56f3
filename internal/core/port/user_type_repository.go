package port

import (
	"context"

	"github.com/opscore/entitlement-service/internal/core/domain"
)

// UserTypeRepository manages user type definitions and their sidebar modules.
type UserTypeRepository interface {
	Create(ctx context.Context, userType domain.UserType) error
	GetByID(ctx context.Context, id string) (*domain.UserType, error)
	GetByName(ctx context.Context, companyID, name string) (*domain.UserType, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.UserType, error)
	Update(ctx context.Context, userType domain.UserType) error
	Delete(ctx context.Context, id string) error
	ReplaceSidebarModules(ctx context.Context, userTypeID string, modules []domain.SidebarModule) error
}
