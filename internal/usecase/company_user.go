package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

// CreateCompanyUserInput captures the payload for provisioning an operator account.
type CreateCompanyUserInput struct {
	CompanyID   string
	Email       string
	DisplayName string
	UserTypeID  *string
}

// CompanyUserService manages operator accounts inside a tenant.
type CompanyUserService struct {
	users     port.CompanyUserRepository
	companies port.CompanyRepository
	logger    *zap.Logger
}

// NewCompanyUserService constructs a CompanyUserService.
func NewCompanyUserService(
	users port.CompanyUserRepository,
	companies port.CompanyRepository,
	logger *zap.Logger,
) *CompanyUserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyUserService{users: users, companies: companies, logger: logger}
}

// CreateCompanyUser provisions a new operator account with no grants.
func (s *CompanyUserService) CreateCompanyUser(ctx context.Context, input CreateCompanyUserInput) (domain.CompanyUser, error) {
	companyID := strings.TrimSpace(input.CompanyID)
	if companyID == "" {
		return domain.CompanyUser{}, fmt.Errorf("company id is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return domain.CompanyUser{}, fmt.Errorf("email is required")
	}

	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CompanyUser{}, ErrCompanyNotFound
		}
		return domain.CompanyUser{}, fmt.Errorf("get company: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = email
	}

	user := domain.CompanyUser{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Email:       email,
		DisplayName: displayName,
		UserTypeID:  trimOptional(input.UserTypeID),
		CreatedAt:   time.Now().UTC(),
	}
	user.UpdatedAt = user.CreatedAt

	if err := s.users.Create(ctx, user); err != nil {
		return domain.CompanyUser{}, fmt.Errorf("create company user: %w", err)
	}

	return user, nil
}

// ListCompanyUsers returns all operator accounts of a tenant.
func (s *CompanyUserService) ListCompanyUsers(ctx context.Context, companyID string) ([]domain.CompanyUser, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, fmt.Errorf("company id is required")
	}
	return s.users.ListByCompany(ctx, companyID)
}
