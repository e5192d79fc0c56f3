package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opscore/entitlement-service/internal/transport/http/middleware"
	"github.com/opscore/entitlement-service/internal/usecase"
)

// CompanyHandler serves tenant records and their entitlement projections.
type CompanyHandler struct {
	entitlements *usecase.EntitlementService
}

// NewCompanyHandler builds a new company handler instance.
func NewCompanyHandler(entitlements *usecase.EntitlementService) *CompanyHandler {
	return &CompanyHandler{entitlements: entitlements}
}

// RegisterRoutes attaches the read endpoints to the router group. The
// entitlement write endpoint is registered separately so the caller can gate
// it behind admin middleware.
func (h *CompanyHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/current", h.GetCurrent)
	r.GET("/:id/entitlements", h.GetEntitlements)
}

// GetCurrent returns the tenant record for the company_id query parameter,
// falling back to the authenticated company claim.
func (h *CompanyHandler) GetCurrent(c *gin.Context) {
	if h.entitlements == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company handler not fully configured"))
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

	company, err := h.entitlements.GetCompany(c.Request.Context(), companyID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCompanyNotFound, Status: http.StatusNotFound, Message: "company not found"},
		}, http.StatusInternalServerError, "failed to load company")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(CompanyResponse{Company: newCompanyPayload(*company)}))
}

// GetEntitlements returns the company's available module projection: the
// catalog filtered to what the subscription allows.
func (h *CompanyHandler) GetEntitlements(c *gin.Context) {
	if h.entitlements == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company handler not fully configured"))
		return
	}

	companyID := strings.TrimSpace(c.Param("id"))
	if companyID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "company id is required"))
		return
	}

	available, err := h.entitlements.AvailableModules(c.Request.Context(), companyID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCompanyNotFound, Status: http.StatusNotFound, Message: "company not found"},
		}, http.StatusInternalServerError, "failed to load entitlements")
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(newEntitlementResponse(companyID, available)))
}

// ReplaceEntitlements replaces a company's entitlement set wholesale. Every
// referenced id must exist in the module catalog.
func (h *CompanyHandler) ReplaceEntitlements(c *gin.Context) {
	if h.entitlements == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "company handler not fully configured"))
		return
	}

	companyID := strings.TrimSpace(c.Param("id"))
	if companyID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "company id is required"))
		return
	}

	var req EntitlementReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid entitlement payload"))
		return
	}

	input := usecase.ReplaceEntitlementInput{
		CompanyID:        companyID,
		ModuleIDs:        req.ModuleIDs,
		SubItemsByModule: req.SubItemsByModule,
	}

	if _, err := h.entitlements.ReplaceEntitlement(c.Request.Context(), input); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCompanyNotFound, Status: http.StatusNotFound, Message: "company not found"},
			{Err: usecase.ErrUnknownModule, Status: http.StatusUnprocessableEntity, Message: "unknown module or sub-item id"},
		}, http.StatusInternalServerError, "failed to replace entitlements")
		return
	}

	available, err := h.entitlements.AvailableModules(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load entitlements"))
		return
	}

	c.JSON(http.StatusOK, NewDataResponse(newEntitlementResponse(companyID, available)))
}
