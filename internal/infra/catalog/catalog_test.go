package catalog

import (
	"testing"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	provider, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	catalog := provider.Catalog()
	if catalog.Len() == 0 {
		t.Fatal("expected embedded catalog to have modules")
	}

	hr, ok := catalog.Module("hr")
	if !ok {
		t.Fatal("expected hr module in embedded catalog")
	}
	if _, ok := hr.SubItem("payroll"); !ok {
		t.Error("expected payroll sub-item under hr")
	}

	settings, ok := catalog.Module("settings")
	if !ok {
		t.Fatal("expected settings module in embedded catalog")
	}
	if !settings.IsLeaf() {
		t.Error("expected settings to be a leaf module")
	}
}

func TestParse_RejectsDuplicateModuleIDs(t *testing.T) {
	raw := []byte(`
modules:
  - id: hr
    name: Human Resources
  - id: hr
    name: Human Resources Again
`)

	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for duplicate module ids")
	}
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("modules: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestParse_PreservesOrder(t *testing.T) {
	raw := []byte(`
modules:
  - id: zeta
    name: Zeta
  - id: alpha
    name: Alpha
`)

	provider, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	modules := provider.Catalog().Modules()
	if modules[0].ID != "zeta" || modules[1].ID != "alpha" {
		t.Fatalf("expected declaration order preserved, got %s, %s", modules[0].ID, modules[1].ID)
	}
}
