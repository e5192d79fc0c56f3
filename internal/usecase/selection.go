package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/repository"
)

// ErrCompanyUserNotFound is returned when the referenced operator account
// does not exist.
var ErrCompanyUserNotFound = errors.New("company user not found")

// SubItemView is one selectable row under a module.
type SubItemView struct {
	ID       string
	Name     string
	Selected bool
}

// ModuleSelectionView is one module row of the resolved selection tree,
// carrying the tri-state the legacy checkbox rendered.
type ModuleSelectionView struct {
	ID       string
	Name     string
	Status   domain.SelectionStatus
	SubItems []SubItemView
}

// SelectionView is the full resolved view model for one company user.
type SelectionView struct {
	CompanyUserID string
	Modules       []ModuleSelectionView
	Granted       []string
}

// SelectionService resolves and mutates company-user module grants against
// the company's entitlement projection.
type SelectionService struct {
	users        port.CompanyUserRepository
	entitlements *EntitlementService
	events       port.EventPublisher
	logger       *zap.Logger
	grantMetric  prometheus.Counter
	toggleMetric prometheus.Counter
}

// NewSelectionService constructs a SelectionService.
func NewSelectionService(
	users port.CompanyUserRepository,
	entitlements *EntitlementService,
	events port.EventPublisher,
	logger *zap.Logger,
) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{
		users:        users,
		entitlements: entitlements,
		events:       events,
		logger:       logger,
	}
}

// WithMetrics attaches optional counters for grant replacements and toggles.
func (s *SelectionService) WithMetrics(grants, toggles prometheus.Counter) *SelectionService {
	s.grantMetric = grants
	s.toggleMetric = toggles
	return s
}

// ResolveSelection loads the user's grant list and projects it into the
// tri-state tree. Persisted identifiers that no longer resolve against the
// entitlement are dropped from the view and logged, never silently granted.
func (s *SelectionService) ResolveSelection(ctx context.Context, companyUserID string) (SelectionView, error) {
	user, err := s.getUser(ctx, companyUserID)
	if err != nil {
		return SelectionView{}, err
	}

	available, err := s.entitlements.AvailableModules(ctx, user.CompanyID)
	if err != nil {
		return SelectionView{}, err
	}

	selection, dropped := domain.SelectionFromFlat(available, user.ModuleGrants)
	if len(dropped) > 0 {
		s.logger.Warn("persisted grants no longer entitled",
			zap.String("company_user_id", user.ID),
			zap.String("company_id", user.CompanyID),
			zap.Strings("dropped", dropped),
		)
	}

	return buildView(user.ID, available, selection), nil
}

// UpdateGrants replaces the user's grant list with the submitted flat
// identifiers. Every id must resolve against the entitlement projection or
// the whole update is rejected.
func (s *SelectionService) UpdateGrants(ctx context.Context, actorID, companyUserID string, identifiers []string) (SelectionView, error) {
	user, err := s.getUser(ctx, companyUserID)
	if err != nil {
		return SelectionView{}, err
	}

	available, err := s.entitlements.AvailableModules(ctx, user.CompanyID)
	if err != nil {
		return SelectionView{}, err
	}

	selection, dropped := domain.SelectionFromFlat(available, identifiers)
	if len(dropped) > 0 {
		return SelectionView{}, fmt.Errorf("identifiers %s: %w", strings.Join(dropped, ", "), domain.ErrNotEntitled)
	}

	return s.persist(ctx, actorID, user, available, selection)
}

// ToggleIdentifier applies one checkbox click server-side: module ids get the
// bulk parent semantics, sub-item ids flip their single membership.
func (s *SelectionService) ToggleIdentifier(ctx context.Context, actorID, companyUserID, identifier string) (SelectionView, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return SelectionView{}, fmt.Errorf("identifier is required")
	}

	user, err := s.getUser(ctx, companyUserID)
	if err != nil {
		return SelectionView{}, err
	}

	available, err := s.entitlements.AvailableModules(ctx, user.CompanyID)
	if err != nil {
		return SelectionView{}, err
	}

	selection, dropped := domain.SelectionFromFlat(available, user.ModuleGrants)
	if len(dropped) > 0 {
		s.logger.Warn("persisted grants no longer entitled",
			zap.String("company_user_id", user.ID),
			zap.Strings("dropped", dropped),
		)
	}

	if err := selection.Toggle(available, identifier); err != nil {
		return SelectionView{}, fmt.Errorf("toggle %q: %w", identifier, err)
	}

	if s.toggleMetric != nil {
		s.toggleMetric.Inc()
	}

	return s.persist(ctx, actorID, user, available, selection)
}

func (s *SelectionService) persist(
	ctx context.Context,
	actorID string,
	user *domain.CompanyUser,
	available []domain.AvailableModule,
	selection *domain.Selection,
) (SelectionView, error) {
	granted := selection.Flatten(available)

	if err := s.users.ReplaceModuleGrants(ctx, user.ID, granted); err != nil {
		return SelectionView{}, fmt.Errorf("replace module grants: %w", err)
	}

	if s.grantMetric != nil {
		s.grantMetric.Inc()
	}

	if s.events != nil {
		event := domain.GrantChangedEvent{
			EventID:       uuid.NewString(),
			CompanyID:     user.CompanyID,
			CompanyUserID: user.ID,
			Granted:       granted,
			ChangedBy:     actorID,
			ChangedAt:     time.Now().UTC(),
		}
		if err := s.events.PublishGrantChanged(ctx, event); err != nil {
			s.logger.Warn("failed to publish grant change event",
				zap.String("company_user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return buildView(user.ID, available, selection), nil
}

func (s *SelectionService) getUser(ctx context.Context, companyUserID string) (*domain.CompanyUser, error) {
	companyUserID = strings.TrimSpace(companyUserID)
	if companyUserID == "" {
		return nil, fmt.Errorf("company user id is required")
	}

	user, err := s.users.GetByID(ctx, companyUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompanyUserNotFound
		}
		return nil, fmt.Errorf("get company user: %w", err)
	}

	return user, nil
}

func buildView(companyUserID string, available []domain.AvailableModule, selection *domain.Selection) SelectionView {
	modules := make([]ModuleSelectionView, 0, len(available))

	for _, module := range available {
		view := ModuleSelectionView{
			ID:     module.ID,
			Name:   module.Name,
			Status: selection.StatusOf(module),
		}
		for _, sub := range module.SubItems {
			view.SubItems = append(view.SubItems, SubItemView{
				ID:       sub.ID,
				Name:     sub.Name,
				Selected: selection.HasSubItem(module.ID, sub.ID),
			})
		}
		modules = append(modules, view)
	}

	return SelectionView{
		CompanyUserID: companyUserID,
		Modules:       modules,
		Granted:       selection.Flatten(available),
	}
}
