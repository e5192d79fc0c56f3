package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/transport/http/middleware"
	"github.com/opscore/entitlement-service/internal/usecase"
)

// UserTypeHandler manages reusable grant templates and their assignment.
type UserTypeHandler struct {
	userTypes *usecase.UserTypeService
}

// NewUserTypeHandler builds a new user type handler instance.
func NewUserTypeHandler(userTypes *usecase.UserTypeService) *UserTypeHandler {
	return &UserTypeHandler{userTypes: userTypes}
}

// RegisterRoutes attaches the user type CRUD endpoints to the router group.
// The optional middlewares run in front of the mutating endpoints only.
func (h *UserTypeHandler) RegisterRoutes(r *gin.RouterGroup, writeMiddlewares ...gin.HandlerFunc) {
	r.GET("", h.ListUserTypes)
	r.GET("/:id", h.GetUserType)
	r.POST("", append(writeMiddlewares, h.CreateUserType)...)
	r.PUT("/:id", append(writeMiddlewares, h.UpdateUserType)...)
	r.DELETE("/:id", append(writeMiddlewares, h.DeleteUserType)...)
}

var userTypeErrorCases = []ErrorCase{
	{Err: usecase.ErrUserTypeNotFound, Status: http.StatusNotFound, Message: "user type not found"},
	{Err: usecase.ErrUserTypeExists, Status: http.StatusConflict, Message: "user type already exists"},
	{Err: usecase.ErrCompanyNotFound, Status: http.StatusNotFound, Message: "company not found"},
	{Err: usecase.ErrCompanyUserNotFound, Status: http.StatusNotFound, Message: "company user not found"},
	{Err: usecase.ErrCompanyMismatch, Status: http.StatusForbidden, Message: "record belongs to a different company"},
	{Err: domain.ErrNotEntitled, Status: http.StatusUnprocessableEntity, Message: "sidebar module references an identifier the company is not entitled to"},
}

// ListUserTypes returns the user types of the company_id query parameter,
// falling back to the authenticated company claim.
func (h *UserTypeHandler) ListUserTypes(c *gin.Context) {
	if h.userTypes == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "user type handler not fully configured"))
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

	userTypes, err := h.userTypes.ListUserTypes(c.Request.Context(), companyID)
	if err != nil {
		RespondWithMappedError(c, err, userTypeErrorCases, http.StatusInternalServerError, "failed to list user types")
		return
	}

	response := UserTypeListResponse{UserTypes: make([]UserTypePayload, 0, len(userTypes))}
	for _, userType := range userTypes {
		response.UserTypes = append(response.UserTypes, newUserTypePayload(userType))
	}

	c.JSON(http.StatusOK, NewDataResponse(response))
}

// GetUserType returns a single user type by id.
func (h *UserTypeHandler) GetUserType(c *gin.Context) {
	if h.userTypes == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "user type handler not fully configured"))
		return
	}

	userType, err := h.userTypes.GetUserType(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, userTypeErrorCases, http.StatusInternalServerError, "failed to load user type")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(UserTypeResponse{UserType: newUserTypePayload(*userType)}))
}

// CreateUserType provisions a new grant template. Sidebar modules are
// validated against the company's entitlement projection.
func (h *UserTypeHandler) CreateUserType(c *gin.Context) {
	if h.userTypes == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "user type handler not fully configured"))
		return
	}

	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req UserTypeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user type payload"))
		return
	}

	input := usecase.CreateUserTypeInput{
		CompanyID:      strings.TrimSpace(req.CompanyID),
		Name:           strings.TrimSpace(req.Name),
		DisplayName:    strings.TrimSpace(req.DisplayName),
		Description:    req.Description,
		Color:          req.Color,
		SidebarModules: newSidebarModuleInputs(req.SidebarModules),
	}

	userType, err := h.userTypes.CreateUserType(c.Request.Context(), actorID, input)
	if err != nil {
		RespondWithMappedError(c, err, userTypeErrorCases, http.StatusInternalServerError, "failed to create user type")
		return
	}

	c.JSON(http.StatusCreated, NewDataResponse(UserTypeResponse{UserType: newUserTypePayload(userType)}))
}

// UpdateUserType applies a partial update. Nil fields stay untouched; a
// non-nil sidebar module list replaces the stored list wholesale.
func (h *UserTypeHandler) UpdateUserType(c *gin.Context) {
	if h.userTypes == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "user type handler not fully configured"))
		return
	}

	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req UserTypeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user type payload"))
		return
	}

	input := usecase.UpdateUserTypeInput{
		ID:             c.Param("id"),
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		Description:    req.Description,
		Color:          req.Color,
		SidebarModules: newSidebarModuleInputs(req.SidebarModules),
	}

	userType, err := h.userTypes.UpdateUserType(c.Request.Context(), actorID, input)
	if err != nil {
		RespondWithMappedError(c, err, userTypeErrorCases, http.StatusInternalServerError, "failed to update user type")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(UserTypeResponse{UserType: newUserTypePayload(userType)}))
}

// DeleteUserType removes a grant template.
func (h *UserTypeHandler) DeleteUserType(c *gin.Context) {
	if h.userTypes == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "user type handler not fully configured"))
		return
	}

	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	if err := h.userTypes.DeleteUserType(c.Request.Context(), actorID, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, userTypeErrorCases, http.StatusInternalServerError, "failed to delete user type")
		return
	}

	c.JSON(http.StatusOK, Envelope{Success: true, Message: "user type deleted"})
}

// AssignUserType switches a company user to a different user type. Both
// records must belong to the company named in the request.
func (h *UserTypeHandler) AssignUserType(c *gin.Context) {
	if h.userTypes == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "user type handler not fully configured"))
		return
	}

	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req AssignUserTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	input := usecase.AssignUserTypeInput{
		CompanyUserID: c.Param("id"),
		UserTypeID:    strings.TrimSpace(req.UserTypeID),
		CompanyID:     strings.TrimSpace(req.CompanyID),
	}

	if err := h.userTypes.AssignUserType(c.Request.Context(), actorID, input); err != nil {
		RespondWithMappedError(c, err, userTypeErrorCases, http.StatusInternalServerError, "failed to assign user type")
		return
	}

	c.JSON(http.StatusOK, Envelope{Success: true, Message: "user type assigned"})
}
