package domain

import "errors"

// ErrNotEntitled is returned when a toggle targets an identifier that is not
// part of the available module projection. The caller surfaces it as a
// warning instead of silently ignoring the request.
var ErrNotEntitled = errors.New("identifier is not entitled for this company")

// SelectionStatus is the tri-state of one module row: unselected, partially
// selected, or fully selected.
type SelectionStatus int

const (
	SelectionNone SelectionStatus = iota
	SelectionPartial
	SelectionFull
)

// String renders the status for API payloads and logs.
func (s SelectionStatus) String() string {
	switch s {
	case SelectionPartial:
		return "partial"
	case SelectionFull:
		return "full"
	default:
		return "none"
	}
}

// Selection is the set of identifiers granted to one user or user type.
// Entries are namespaced by owning module so sub-item ids that collide across
// modules cannot interfere with each other's tri-state; the legacy flat wire
// format is produced only at the serialization boundary via Flatten.
type Selection struct {
	modules  map[string]struct{}
	subItems map[string]map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{
		modules:  make(map[string]struct{}),
		subItems: make(map[string]map[string]struct{}),
	}
}

// HasModule reports whether a leaf module id is selected.
func (s *Selection) HasModule(moduleID string) bool {
	_, ok := s.modules[moduleID]
	return ok
}

// HasSubItem reports whether a sub-item is selected under the given module.
func (s *Selection) HasSubItem(moduleID, subItemID string) bool {
	subs, ok := s.subItems[moduleID]
	if !ok {
		return false
	}
	_, ok = subs[subItemID]
	return ok
}

// Len returns the total number of selected identifiers.
func (s *Selection) Len() int {
	n := len(s.modules)
	for _, subs := range s.subItems {
		n += len(subs)
	}
	return n
}

// StatusOf computes the tri-state of a module against this selection. For a
// leaf module the module's own id decides; for a module with sub-items the
// parent id is irrelevant and the status derives purely from how many of its
// entitled sub-items are selected.
func (s *Selection) StatusOf(module AvailableModule) SelectionStatus {
	if module.IsLeaf() {
		if s.HasModule(module.ID) {
			return SelectionFull
		}
		return SelectionNone
	}

	selected := 0
	for _, sub := range module.SubItems {
		if s.HasSubItem(module.ID, sub.ID) {
			selected++
		}
	}

	switch {
	case selected == 0:
		return SelectionNone
	case selected == len(module.SubItems):
		return SelectionFull
	default:
		return SelectionPartial
	}
}

// ToggleSubItem flips exactly one sub-item membership. The sub-item must be
// present in the available projection or the toggle is rejected.
func (s *Selection) ToggleSubItem(available []AvailableModule, moduleID, subItemID string) error {
	module, ok := findModule(available, moduleID)
	if !ok {
		return ErrNotEntitled
	}
	if _, ok := module.SubItem(subItemID); !ok {
		return ErrNotEntitled
	}

	subs, ok := s.subItems[moduleID]
	if !ok {
		subs = make(map[string]struct{})
		s.subItems[moduleID] = subs
	}

	if _, selected := subs[subItemID]; selected {
		delete(subs, subItemID)
	} else {
		subs[subItemID] = struct{}{}
	}

	return nil
}

// ToggleModule applies the parent checkbox semantics. A leaf module flips its
// own id. A module with sub-items performs a bulk, idempotent set operation:
// remove every entitled sub-item when the module is currently fully selected,
// otherwise add every entitled sub-item.
func (s *Selection) ToggleModule(available []AvailableModule, moduleID string) error {
	module, ok := findModule(available, moduleID)
	if !ok {
		return ErrNotEntitled
	}

	if module.IsLeaf() {
		if s.HasModule(moduleID) {
			delete(s.modules, moduleID)
		} else {
			s.modules[moduleID] = struct{}{}
		}
		return nil
	}

	if s.StatusOf(module) == SelectionFull {
		delete(s.subItems, moduleID)
		return nil
	}

	subs, ok := s.subItems[moduleID]
	if !ok {
		subs = make(map[string]struct{}, len(module.SubItems))
		s.subItems[moduleID] = subs
	}
	for _, sub := range module.SubItems {
		subs[sub.ID] = struct{}{}
	}

	return nil
}

// Toggle resolves a bare identifier the way the legacy clients reported
// clicks: module ids are matched first, then sub-item ids module by module in
// catalog order. Unresolvable ids are rejected with ErrNotEntitled.
func (s *Selection) Toggle(available []AvailableModule, id string) error {
	if _, ok := findModule(available, id); ok {
		return s.ToggleModule(available, id)
	}

	for _, module := range available {
		if _, ok := module.SubItem(id); ok {
			return s.ToggleSubItem(available, module.ID, id)
		}
	}

	return ErrNotEntitled
}

// Flatten produces the legacy wire format: one flat identifier list in
// catalog order, leaf module ids followed by selected sub-item ids per module.
func (s *Selection) Flatten(available []AvailableModule) []string {
	flat := make([]string, 0, s.Len())

	for _, module := range available {
		if module.IsLeaf() {
			if s.HasModule(module.ID) {
				flat = append(flat, module.ID)
			}
			continue
		}
		for _, sub := range module.SubItems {
			if s.HasSubItem(module.ID, sub.ID) {
				flat = append(flat, sub.ID)
			}
		}
	}

	return flat
}

// SelectionFromFlat rebuilds a selection from a persisted flat identifier
// list. A parent id persisted for a module that has sub-items is expanded to
// all of its entitled sub-items; identifiers that no longer resolve against
// the available projection are dropped and reported so callers can log them.
func SelectionFromFlat(available []AvailableModule, ids []string) (*Selection, []string) {
	selection := NewSelection()
	var dropped []string

	for _, id := range ids {
		if module, ok := findModule(available, id); ok {
			if module.IsLeaf() {
				selection.modules[id] = struct{}{}
				continue
			}
			subs, ok := selection.subItems[id]
			if !ok {
				subs = make(map[string]struct{}, len(module.SubItems))
				selection.subItems[id] = subs
			}
			for _, sub := range module.SubItems {
				subs[sub.ID] = struct{}{}
			}
			continue
		}

		resolved := false
		for _, module := range available {
			if _, ok := module.SubItem(id); ok {
				subs, exists := selection.subItems[module.ID]
				if !exists {
					subs = make(map[string]struct{})
					selection.subItems[module.ID] = subs
				}
				subs[id] = struct{}{}
				resolved = true
				break
			}
		}

		if !resolved {
			dropped = append(dropped, id)
		}
	}

	return selection, dropped
}

func findModule(available []AvailableModule, moduleID string) (AvailableModule, bool) {
	for _, module := range available {
		if module.ID == moduleID {
			return module, true
		}
	}
	return AvailableModule{}, false
}
