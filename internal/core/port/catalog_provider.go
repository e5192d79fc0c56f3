package port

import "github.com/opscore/entitlement-service/internal/core/domain"

// CatalogProvider supplies the static module catalog.
type CatalogProvider interface {
	Catalog() domain.Catalog
}
