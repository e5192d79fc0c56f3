package domain

import (
	"errors"
	"fmt"
)

// SubItem is a finer-grained permission unit nested under a module.
type SubItem struct {
	ID   string
	Name string
}

// ModuleDescriptor describes a top-level feature area of the suite and its
// ordered sub-items. Module ids are unique across the catalog; sub-item ids
// are only guaranteed unique within their owning module.
type ModuleDescriptor struct {
	ID       string
	Name     string
	SubItems []SubItem
}

// IsLeaf reports whether the module has no sub-items and is therefore
// selectable directly by its own id.
func (m ModuleDescriptor) IsLeaf() bool {
	return len(m.SubItems) == 0
}

// SubItem returns the sub-item with the given id, if present.
func (m ModuleDescriptor) SubItem(id string) (SubItem, bool) {
	for _, sub := range m.SubItems {
		if sub.ID == id {
			return sub, true
		}
	}
	return SubItem{}, false
}

// ErrEmptyCatalog indicates a catalog was constructed without any modules.
var ErrEmptyCatalog = errors.New("catalog has no modules")

// Catalog is the ordered, immutable set of modules the suite ships with.
// It is sourced from static configuration and never mutated at runtime.
type Catalog struct {
	modules []ModuleDescriptor
	index   map[string]int
}

// NewCatalog validates the module list and builds the lookup index.
// Catalog order is preserved and significant for rendering.
func NewCatalog(modules []ModuleDescriptor) (Catalog, error) {
	if len(modules) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	index := make(map[string]int, len(modules))
	for i, module := range modules {
		if module.ID == "" {
			return Catalog{}, fmt.Errorf("module at position %d has empty id", i)
		}
		if _, exists := index[module.ID]; exists {
			return Catalog{}, fmt.Errorf("duplicate module id %q", module.ID)
		}
		index[module.ID] = i

		seen := make(map[string]struct{}, len(module.SubItems))
		for _, sub := range module.SubItems {
			if sub.ID == "" {
				return Catalog{}, fmt.Errorf("module %q has sub-item with empty id", module.ID)
			}
			if _, exists := seen[sub.ID]; exists {
				return Catalog{}, fmt.Errorf("module %q has duplicate sub-item id %q", module.ID, sub.ID)
			}
			seen[sub.ID] = struct{}{}
		}
	}

	copied := make([]ModuleDescriptor, len(modules))
	copy(copied, modules)

	return Catalog{modules: copied, index: index}, nil
}

// Modules returns the modules in catalog order.
func (c Catalog) Modules() []ModuleDescriptor {
	out := make([]ModuleDescriptor, len(c.modules))
	copy(out, c.modules)
	return out
}

// Module returns the descriptor for the given module id, if present.
func (c Catalog) Module(id string) (ModuleDescriptor, bool) {
	i, ok := c.index[id]
	if !ok {
		return ModuleDescriptor{}, false
	}
	return c.modules[i], true
}

// Len returns the number of modules in the catalog.
func (c Catalog) Len() int {
	return len(c.modules)
}
