package domain

import (
	"errors"
	"testing"
)

func TestNewCatalog_RejectsDuplicateModuleIDs(t *testing.T) {
	_, err := NewCatalog([]ModuleDescriptor{
		{ID: "hr", Name: "HR"},
		{ID: "hr", Name: "Human Resources"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate module id")
	}
}

func TestNewCatalog_RejectsDuplicateSubItemWithinModule(t *testing.T) {
	_, err := NewCatalog([]ModuleDescriptor{
		{
			ID:   "hr",
			Name: "HR",
			SubItems: []SubItem{
				{ID: "payroll", Name: "Payroll"},
				{ID: "payroll", Name: "Payroll (legacy)"},
			},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate sub-item id within a module")
	}
}

func TestNewCatalog_AllowsSameSubItemIDAcrossModules(t *testing.T) {
	catalog, err := NewCatalog([]ModuleDescriptor{
		{ID: "sales", Name: "Sales", SubItems: []SubItem{{ID: "reports", Name: "Reports"}}},
		{ID: "support", Name: "Support", SubItems: []SubItem{{ID: "reports", Name: "Reports"}}},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 modules, got %d", catalog.Len())
	}
}

func TestNewCatalog_Empty(t *testing.T) {
	if _, err := NewCatalog(nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestCatalog_ModuleLookupPreservesOrder(t *testing.T) {
	catalog := testCatalog(t)

	modules := catalog.Modules()
	want := []string{"hr", "sales", "support", "settings"}
	for i, id := range want {
		if modules[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, modules[i].ID)
		}
	}

	if _, ok := catalog.Module("hr"); !ok {
		t.Error("expected hr lookup to succeed")
	}
	if _, ok := catalog.Module("ghost"); ok {
		t.Error("expected ghost lookup to fail")
	}
}
