package domain

import "time"

// EntitlementSet captures what a company's subscription allows to be granted
// to any of its users: a set of module ids and, per module, the set of
// entitled sub-item ids. It is loaded per company and treated as read-only by
// everything downstream of the repository layer.
type EntitlementSet struct {
	CompanyID        string
	ModuleIDs        map[string]struct{}
	SubItemsByModule map[string]map[string]struct{}
	UpdatedAt        time.Time
}

// NewEntitlementSet builds an entitlement set from plain slices, the shape
// repositories and adapters work with.
func NewEntitlementSet(companyID string, moduleIDs []string, subItemsByModule map[string][]string) EntitlementSet {
	set := EntitlementSet{
		CompanyID:        companyID,
		ModuleIDs:        make(map[string]struct{}, len(moduleIDs)),
		SubItemsByModule: make(map[string]map[string]struct{}, len(subItemsByModule)),
	}

	for _, id := range moduleIDs {
		set.ModuleIDs[id] = struct{}{}
	}

	for moduleID, subIDs := range subItemsByModule {
		subs := make(map[string]struct{}, len(subIDs))
		for _, id := range subIDs {
			subs[id] = struct{}{}
		}
		set.SubItemsByModule[moduleID] = subs
	}

	return set
}

// AllowsModule reports whether the company may grant the module at all.
func (e EntitlementSet) AllowsModule(moduleID string) bool {
	_, ok := e.ModuleIDs[moduleID]
	return ok
}

// AllowsSubItem reports whether the company may grant a specific sub-item.
// The owning module must itself be entitled.
func (e EntitlementSet) AllowsSubItem(moduleID, subItemID string) bool {
	if !e.AllowsModule(moduleID) {
		return false
	}
	subs, ok := e.SubItemsByModule[moduleID]
	if !ok {
		return false
	}
	_, ok = subs[subItemID]
	return ok
}

// IsEmpty reports whether no modules are entitled at all.
func (e EntitlementSet) IsEmpty() bool {
	return len(e.ModuleIDs) == 0
}

// AvailableModule is a catalog module filtered down to the sub-items the
// company is entitled to. It has no identity of its own; it is recomputed
// whenever the catalog or the entitlement set changes.
type AvailableModule struct {
	ID       string
	Name     string
	SubItems []SubItem
}

// IsLeaf reports whether no entitled sub-items remain under the module.
func (m AvailableModule) IsLeaf() bool {
	return len(m.SubItems) == 0
}

// SubItem returns the entitled sub-item with the given id, if present.
func (m AvailableModule) SubItem(id string) (SubItem, bool) {
	for _, sub := range m.SubItems {
		if sub.ID == id {
			return sub, true
		}
	}
	return SubItem{}, false
}

// AvailableModules projects the catalog through the entitlement set. Modules
// absent from the entitlement are dropped entirely; entitled modules keep only
// their entitled sub-items. Catalog order is preserved, no sorting applied.
func AvailableModules(catalog Catalog, entitlement EntitlementSet) []AvailableModule {
	available := make([]AvailableModule, 0, catalog.Len())

	for _, module := range catalog.Modules() {
		if !entitlement.AllowsModule(module.ID) {
			continue
		}

		projected := AvailableModule{ID: module.ID, Name: module.Name}
		for _, sub := range module.SubItems {
			if entitlement.AllowsSubItem(module.ID, sub.ID) {
				projected.SubItems = append(projected.SubItems, sub)
			}
		}

		available = append(available, projected)
	}

	return available
}
