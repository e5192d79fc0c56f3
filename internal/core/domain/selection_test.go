package domain

import (
	"errors"
	"reflect"
	"testing"
)

func testCatalog(t *testing.T) Catalog {
	t.Helper()

	catalog, err := NewCatalog([]ModuleDescriptor{
		{
			ID:   "hr",
			Name: "HR",
			SubItems: []SubItem{
				{ID: "payroll", Name: "Payroll"},
				{ID: "attendance", Name: "Attendance"},
				{ID: "recruitment", Name: "Recruitment"},
			},
		},
		{
			ID:   "sales",
			Name: "Sales",
			SubItems: []SubItem{
				{ID: "leads", Name: "Leads"},
				{ID: "reports", Name: "Reports"},
			},
		},
		{
			ID:   "support",
			Name: "Support",
			SubItems: []SubItem{
				{ID: "tickets", Name: "Tickets"},
				{ID: "reports", Name: "Reports"},
			},
		},
		{ID: "settings", Name: "Settings"},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	return catalog
}

func fullEntitlement() EntitlementSet {
	return NewEntitlementSet("company-1",
		[]string{"hr", "sales", "support", "settings"},
		map[string][]string{
			"hr":      {"payroll", "attendance", "recruitment"},
			"sales":   {"leads", "reports"},
			"support": {"tickets", "reports"},
		},
	)
}

func TestAvailableModules_OnlyEntitledIDsRendered(t *testing.T) {
	catalog := testCatalog(t)
	entitlement := NewEntitlementSet("company-1",
		[]string{"hr", "settings"},
		map[string][]string{
			"hr": {"payroll"},
		},
	)

	available := AvailableModules(catalog, entitlement)

	if len(available) != 2 {
		t.Fatalf("expected 2 available modules, got %d", len(available))
	}

	for _, module := range available {
		if !entitlement.AllowsModule(module.ID) {
			t.Errorf("module %q rendered without entitlement", module.ID)
		}
		for _, sub := range module.SubItems {
			if !entitlement.AllowsSubItem(module.ID, sub.ID) {
				t.Errorf("sub-item %q of %q rendered without entitlement", sub.ID, module.ID)
			}
		}
	}

	if available[0].ID != "hr" || available[1].ID != "settings" {
		t.Errorf("expected catalog order [hr settings], got [%s %s]", available[0].ID, available[1].ID)
	}

	if len(available[0].SubItems) != 1 || available[0].SubItems[0].ID != "payroll" {
		t.Errorf("expected hr to carry only payroll, got %+v", available[0].SubItems)
	}
}

func TestAvailableModules_EmptyEntitlement(t *testing.T) {
	catalog := testCatalog(t)
	entitlement := NewEntitlementSet("company-1", nil, nil)

	if !entitlement.IsEmpty() {
		t.Fatal("expected entitlement to be empty")
	}

	available := AvailableModules(catalog, entitlement)
	if len(available) != 0 {
		t.Fatalf("expected no available modules, got %d", len(available))
	}
}

func TestSelection_ToggleSubItemFlipsExactlyOneID(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())
	selection := NewSelection()

	if err := selection.ToggleSubItem(available, "hr", "payroll"); err != nil {
		t.Fatalf("ToggleSubItem: %v", err)
	}
	if err := selection.ToggleSubItem(available, "sales", "leads"); err != nil {
		t.Fatalf("ToggleSubItem: %v", err)
	}

	if !selection.HasSubItem("hr", "payroll") || !selection.HasSubItem("sales", "leads") {
		t.Fatal("expected payroll and leads selected")
	}
	if selection.Len() != 2 {
		t.Fatalf("expected 2 selected ids, got %d", selection.Len())
	}

	// Second toggle removes the membership again and leaves the rest alone.
	if err := selection.ToggleSubItem(available, "hr", "payroll"); err != nil {
		t.Fatalf("ToggleSubItem: %v", err)
	}
	if selection.HasSubItem("hr", "payroll") {
		t.Error("expected payroll deselected after second toggle")
	}
	if !selection.HasSubItem("sales", "leads") {
		t.Error("unrelated selection mutated by toggle")
	}
}

func TestSelection_ToggleFullySelectedModuleRemovesOnlyItsSubItems(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())
	selection := NewSelection()

	if err := selection.ToggleModule(available, "hr"); err != nil {
		t.Fatalf("ToggleModule: %v", err)
	}
	if err := selection.ToggleSubItem(available, "sales", "leads"); err != nil {
		t.Fatalf("ToggleSubItem: %v", err)
	}

	hr, _ := findModule(available, "hr")
	if selection.StatusOf(hr) != SelectionFull {
		t.Fatal("expected hr fully selected")
	}

	if err := selection.ToggleModule(available, "hr"); err != nil {
		t.Fatalf("ToggleModule: %v", err)
	}

	if selection.StatusOf(hr) != SelectionNone {
		t.Error("expected hr unselected after toggling a full module")
	}
	if !selection.HasSubItem("sales", "leads") {
		t.Error("toggling hr removed an unrelated sales grant")
	}
}

func TestSelection_TogglePartialModuleSelectsAllIdempotently(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())
	selection := NewSelection()

	if err := selection.ToggleSubItem(available, "hr", "payroll"); err != nil {
		t.Fatalf("ToggleSubItem: %v", err)
	}

	hr, _ := findModule(available, "hr")
	if selection.StatusOf(hr) != SelectionPartial {
		t.Fatal("expected hr partially selected")
	}

	if err := selection.ToggleModule(available, "hr"); err != nil {
		t.Fatalf("ToggleModule: %v", err)
	}
	first := selection.Flatten(available)

	// Re-adding from a fully selected state removes; add back and compare to
	// verify the bulk add is an idempotent union.
	if err := selection.ToggleModule(available, "hr"); err != nil {
		t.Fatalf("ToggleModule: %v", err)
	}
	if err := selection.ToggleModule(available, "hr"); err != nil {
		t.Fatalf("ToggleModule: %v", err)
	}
	second := selection.Flatten(available)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("bulk select not idempotent: %v vs %v", first, second)
	}
	if selection.StatusOf(hr) != SelectionFull {
		t.Error("expected hr fully selected")
	}
}

func TestSelection_LeafModuleTogglesOwnID(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())
	selection := NewSelection()

	if err := selection.ToggleModule(available, "settings"); err != nil {
		t.Fatalf("ToggleModule: %v", err)
	}

	settings, _ := findModule(available, "settings")
	if selection.StatusOf(settings) != SelectionFull {
		t.Error("expected leaf module fully selected by its own id")
	}

	flat := selection.Flatten(available)
	if len(flat) != 1 || flat[0] != "settings" {
		t.Errorf("expected flat list [settings], got %v", flat)
	}
}

func TestSelection_TriStateIsPureFunctionOfSubItems(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())
	hr, _ := findModule(available, "hr")

	selection := NewSelection()
	if got := selection.StatusOf(hr); got != SelectionNone {
		t.Errorf("empty selection: expected none, got %s", got)
	}

	_ = selection.ToggleSubItem(available, "hr", "payroll")
	if got := selection.StatusOf(hr); got != SelectionPartial {
		t.Errorf("one of three: expected partial, got %s", got)
	}

	_ = selection.ToggleSubItem(available, "hr", "attendance")
	_ = selection.ToggleSubItem(available, "hr", "recruitment")
	if got := selection.StatusOf(hr); got != SelectionFull {
		t.Errorf("all selected: expected full, got %s", got)
	}
}

func TestSelection_FlatRoundTrip(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())

	persisted := []string{"payroll", "attendance", "leads", "settings"}
	selection, dropped := SelectionFromFlat(available, persisted)
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}

	flat := selection.Flatten(available)
	if !reflect.DeepEqual(flat, persisted) {
		t.Errorf("round trip changed the grant list: got %v, want %v", flat, persisted)
	}
}

func TestSelection_FromFlatExpandsParentAndDropsUnknown(t *testing.T) {
	available := AvailableModules(testCatalog(t), fullEntitlement())

	selection, dropped := SelectionFromFlat(available, []string{"hr", "ghost-module"})

	hr, _ := findModule(available, "hr")
	if selection.StatusOf(hr) != SelectionFull {
		t.Error("expected persisted parent id to expand to all entitled sub-items")
	}
	if len(dropped) != 1 || dropped[0] != "ghost-module" {
		t.Errorf("expected [ghost-module] dropped, got %v", dropped)
	}
}

func TestSelection_DuplicateSubItemIDsNamespacedPerModule(t *testing.T) {
	// "reports" exists under both sales and support.
	available := AvailableModules(testCatalog(t), fullEntitlement())
	selection := NewSelection()

	if err := selection.ToggleSubItem(available, "sales", "reports"); err != nil {
		t.Fatalf("ToggleSubItem: %v", err)
	}

	sales, _ := findModule(available, "sales")
	support, _ := findModule(available, "support")

	if selection.StatusOf(sales) != SelectionPartial {
		t.Error("expected sales partially selected")
	}
	if selection.StatusOf(support) != SelectionNone {
		t.Error("selecting sales/reports leaked into support's tri-state")
	}
}

func TestSelection_ScenarioFromLegacySuite(t *testing.T) {
	catalog, err := NewCatalog([]ModuleDescriptor{
		{
			ID:   "hr",
			Name: "HR",
			SubItems: []SubItem{
				{ID: "payroll", Name: "Payroll"},
				{ID: "attendance", Name: "Attendance"},
			},
		},
		{ID: "sales", Name: "Sales"},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	// Sales module itself is not entitled.
	entitlement := NewEntitlementSet("company-1",
		[]string{"hr"},
		map[string][]string{"hr": {"payroll", "attendance"}},
	)

	available := AvailableModules(catalog, entitlement)
	if len(available) != 1 || available[0].ID != "hr" {
		t.Fatalf("expected only hr available, got %+v", available)
	}

	selection := NewSelection()
	hr := available[0]

	if err := selection.Toggle(available, "payroll"); err != nil {
		t.Fatalf("Toggle payroll: %v", err)
	}
	if err := selection.Toggle(available, "attendance"); err != nil {
		t.Fatalf("Toggle attendance: %v", err)
	}
	if selection.StatusOf(hr) != SelectionFull {
		t.Error("expected hr fully selected after selecting both sub-items")
	}

	if err := selection.Toggle(available, "attendance"); err != nil {
		t.Fatalf("Toggle attendance: %v", err)
	}
	if selection.StatusOf(hr) != SelectionPartial {
		t.Error("expected hr partially selected after deselecting attendance")
	}
}

func TestSelection_ToggleUnentitledIDRejected(t *testing.T) {
	catalog := testCatalog(t)
	entitlement := NewEntitlementSet("company-1",
		[]string{"hr"},
		map[string][]string{"hr": {"payroll"}},
	)

	available := AvailableModules(catalog, entitlement)
	selection := NewSelection()
	_ = selection.Toggle(available, "payroll")
	before := selection.Flatten(available)

	if err := selection.Toggle(available, "sales"); !errors.Is(err, ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled for sales, got %v", err)
	}
	if err := selection.ToggleSubItem(available, "hr", "attendance"); !errors.Is(err, ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled for unentitled sub-item, got %v", err)
	}

	after := selection.Flatten(available)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rejected toggle mutated selection: %v vs %v", before, after)
	}
}
