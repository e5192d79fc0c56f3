package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opscore/entitlement-service/internal/core/port"
)

// CatalogHandler serves the static module catalog.
type CatalogHandler struct {
	catalog port.CatalogProvider
}

// NewCatalogHandler builds a new catalog handler instance.
func NewCatalogHandler(catalog port.CatalogProvider) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes attaches the catalog endpoints to the router group.
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/modules", h.ListModules)
}

// ListModules returns every module the suite ships with, in catalog order.
func (h *CatalogHandler) ListModules(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "catalog handler not fully configured"))
		return
	}

	modules := h.catalog.Catalog().Modules()
	response := CatalogResponse{Modules: make([]ModulePayload, 0, len(modules))}
	for _, module := range modules {
		response.Modules = append(response.Modules, newModulePayload(module))
	}

	c.JSON(http.StatusOK, NewDataResponse(response))
}
