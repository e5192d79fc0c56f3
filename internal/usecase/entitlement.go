package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

var (
	// ErrCompanyNotFound is returned when the referenced tenant does not exist.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrUnknownModule indicates an entitlement write referenced an id absent
	// from the module catalog.
	ErrUnknownModule = errors.New("unknown module or sub-item id")
)

// ReplaceEntitlementInput carries a full replacement entitlement for one company.
type ReplaceEntitlementInput struct {
	CompanyID        string
	ModuleIDs        []string
	SubItemsByModule map[string][]string
}

// EntitlementService owns the read and write paths for company entitlements.
// Reads go through the Redis cache; writes invalidate it.
type EntitlementService struct {
	catalog      port.CatalogProvider
	companies    port.CompanyRepository
	entitlements port.EntitlementRepository
	cache        port.EntitlementCache
	logger       *zap.Logger
}

// NewEntitlementService constructs an EntitlementService.
func NewEntitlementService(
	catalog port.CatalogProvider,
	companies port.CompanyRepository,
	entitlements port.EntitlementRepository,
	logger *zap.Logger,
) *EntitlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntitlementService{
		catalog:      catalog,
		companies:    companies,
		entitlements: entitlements,
		logger:       logger,
	}
}

// WithCache attaches the read-through entitlement cache.
func (s *EntitlementService) WithCache(cache port.EntitlementCache) *EntitlementService {
	s.cache = cache
	return s
}

// GetCompany loads a tenant record with its allowed module ids.
func (s *EntitlementService) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, fmt.Errorf("company id is required")
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}

	return company, nil
}

// GetEntitlement returns the company's entitlement set. A company that was
// never provisioned yields an empty set, which downstream projects into the
// explicit "no modules available" state.
func (s *EntitlementService) GetEntitlement(ctx context.Context, companyID string) (domain.EntitlementSet, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return domain.EntitlementSet{}, fmt.Errorf("company id is required")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, companyID)
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("entitlement cache read failed, falling back to store",
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		}
	}

	set, err := s.entitlements.GetByCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewEntitlementSet(companyID, nil, nil), nil
		}
		return domain.EntitlementSet{}, fmt.Errorf("get entitlement: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, *set); err != nil {
			s.logger.Warn("entitlement cache write failed",
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		}
	}

	return *set, nil
}

// AvailableModules projects the catalog through the company's entitlement.
func (s *EntitlementService) AvailableModules(ctx context.Context, companyID string) ([]domain.AvailableModule, error) {
	entitlement, err := s.GetEntitlement(ctx, companyID)
	if err != nil {
		return nil, err
	}

	return domain.AvailableModules(s.catalog.Catalog(), entitlement), nil
}

// ReplaceEntitlement overwrites the company's entitlement set. Every id must
// exist in the catalog; the cache entry is dropped on success.
func (s *EntitlementService) ReplaceEntitlement(ctx context.Context, input ReplaceEntitlementInput) (domain.EntitlementSet, error) {
	companyID := strings.TrimSpace(input.CompanyID)
	if companyID == "" {
		return domain.EntitlementSet{}, fmt.Errorf("company id is required")
	}

	if _, err := s.GetCompany(ctx, companyID); err != nil {
		return domain.EntitlementSet{}, err
	}

	catalog := s.catalog.Catalog()
	for _, moduleID := range input.ModuleIDs {
		if _, ok := catalog.Module(moduleID); !ok {
			return domain.EntitlementSet{}, fmt.Errorf("module %q: %w", moduleID, ErrUnknownModule)
		}
	}
	for moduleID, subIDs := range input.SubItemsByModule {
		module, ok := catalog.Module(moduleID)
		if !ok {
			return domain.EntitlementSet{}, fmt.Errorf("module %q: %w", moduleID, ErrUnknownModule)
		}
		for _, subID := range subIDs {
			if _, ok := module.SubItem(subID); !ok {
				return domain.EntitlementSet{}, fmt.Errorf("sub-item %q of module %q: %w", subID, moduleID, ErrUnknownModule)
			}
		}
	}

	set := domain.NewEntitlementSet(companyID, input.ModuleIDs, input.SubItemsByModule)

	if err := s.entitlements.Replace(ctx, set); err != nil {
		return domain.EntitlementSet{}, fmt.Errorf("replace entitlement: %w", err)
	}

	if err := s.companies.UpdateAllowedModules(ctx, companyID, input.ModuleIDs); err != nil {
		return domain.EntitlementSet{}, fmt.Errorf("update allowed modules: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, companyID); err != nil {
			s.logger.Warn("entitlement cache invalidation failed",
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		}
	}

	return set, nil
}
