package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/transport/http/middleware"
	"github.com/opscore/entitlement-service/internal/usecase"
)

// CompanyUserHandler serves operator accounts and their module grants.
type CompanyUserHandler struct {
	users      *usecase.CompanyUserService
	selections *usecase.SelectionService
}

// NewCompanyUserHandler builds a new company user handler instance.
func NewCompanyUserHandler(users *usecase.CompanyUserService, selections *usecase.SelectionService) *CompanyUserHandler {
	return &CompanyUserHandler{users: users, selections: selections}
}

// RegisterReadRoutes attaches the read endpoints to the router group.
func (h *CompanyUserHandler) RegisterReadRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListCompanyUsers)
	r.GET("/:id/modules", h.GetModuleGrants)
	r.GET("/:id/selection", h.GetSelection)
}

var companyUserErrorCases = []ErrorCase{
	{Err: usecase.ErrCompanyUserNotFound, Status: http.StatusNotFound, Message: "company user not found"},
	{Err: usecase.ErrCompanyNotFound, Status: http.StatusNotFound, Message: "company not found"},
	{Err: domain.ErrNotEntitled, Status: http.StatusUnprocessableEntity, Message: "identifier is not entitled for this company"},
}

// CreateCompanyUser provisions a new operator account with no grants.
func (h *CompanyUserHandler) CreateCompanyUser(c *gin.Context) {
	if h.users == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company user handler not fully configured"))
		return
	}

	var req CompanyUserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid company user payload"))
		return
	}

	input := usecase.CreateCompanyUserInput{
		CompanyID:   strings.TrimSpace(req.CompanyID),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		UserTypeID:  req.UserTypeID,
	}

	user, err := h.users.CreateCompanyUser(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, companyUserErrorCases, http.StatusInternalServerError, "failed to create company user")
		return
	}

	c.JSON(http.StatusCreated, NewDataResponse(CompanyUserResponse{User: newCompanyUserPayload(user)}))
}

// ListCompanyUsers returns the operator accounts of the company_id query
// parameter, falling back to the authenticated company claim.
func (h *CompanyUserHandler) ListCompanyUsers(c *gin.Context) {
	if h.users == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company user handler not fully configured"))
		return
	}

	companyID := strings.TrimSpace(c.Query("company_id"))
	if companyID == "" {
		companyID, _ = middleware.GetAuthenticatedCompanyID(c)
	}
	if companyID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "company_id is required"))
		return
	}

	users, err := h.users.ListCompanyUsers(c.Request.Context(), companyID)
	if err != nil {
		RespondWithMappedError(c, err, companyUserErrorCases, http.StatusInternalServerError, "failed to list company users")
		return
	}

	response := CompanyUserListResponse{
		Users: make([]CompanyUserPayload, 0, len(users)),
		Total: len(users),
	}
	for _, user := range users {
		response.Users = append(response.Users, newCompanyUserPayload(user))
	}

	c.JSON(http.StatusOK, NewDataResponse(response))
}

// GetModuleGrants returns the user's flat granted identifier list, resolved
// against the current entitlement so revoked identifiers never leak out.
func (h *CompanyUserHandler) GetModuleGrants(c *gin.Context) {
	if h.selections == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company user handler not fully configured"))
		return
	}

	view, err := h.selections.ResolveSelection(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, companyUserErrorCases, http.StatusInternalServerError, "failed to load module grants")
		return
	}

	granted := view.Granted
	if granted == nil {
		granted = []string{}
	}

	c.JSON(http.StatusOK, NewDataResponse(ModuleGrantsResponse{
		CompanyUserID: view.CompanyUserID,
		Granted:       granted,
	}))
}

// UpdateModuleGrants replaces the user's grant list with the submitted flat
// identifiers. Any identifier outside the entitlement rejects the whole
// update.
func (h *CompanyUserHandler) UpdateModuleGrants(c *gin.Context) {
	if h.selections == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company user handler not fully configured"))
		return
	}

	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req ModuleGrantsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid grants payload"))
		return
	}

	identifiers := make([]string, 0, len(req.Granted))
	for _, id := range req.Granted {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			identifiers = append(identifiers, trimmed)
		}
	}

	view, err := h.selections.UpdateGrants(c.Request.Context(), actorID, c.Param("id"), identifiers)
	if err != nil {
		RespondWithMappedError(c, err, companyUserErrorCases, http.StatusInternalServerError, "failed to update module grants")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(ModuleGrantsResponse{
		CompanyUserID: view.CompanyUserID,
		Granted:       view.Granted,
	}))
}

// GetSelection returns the resolved view model: every available module with
// its tri-state status and per-sub-item selection flags.
func (h *CompanyUserHandler) GetSelection(c *gin.Context) {
	if h.selections == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company user handler not fully configured"))
		return
	}

	view, err := h.selections.ResolveSelection(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, companyUserErrorCases, http.StatusInternalServerError, "failed to resolve selection")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(newSelectionResponse(view)))
}

// ToggleModule applies one checkbox interaction server-side: sub-item ids
// flip their single membership, module ids get the bulk parent semantics.
func (h *CompanyUserHandler) ToggleModule(c *gin.Context) {
	if h.selections == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company user handler not fully configured"))
		return
	}

	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid toggle payload"))
		return
	}

	identifier := strings.TrimSpace(req.ID)
	if identifier == "" {
		identifier = strings.TrimSpace(req.ModuleID)
	}
	if identifier == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "id is required"))
		return
	}

	view, err := h.selections.ToggleIdentifier(c.Request.Context(), actorID, c.Param("id"), identifier)
	if err != nil {
		RespondWithMappedError(c, err, companyUserErrorCases, http.StatusInternalServerError, "failed to toggle identifier")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(newSelectionResponse(view)))
}
