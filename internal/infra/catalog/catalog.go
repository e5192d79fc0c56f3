package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/core/port"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type subItemSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type moduleSpec struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	SubItems []subItemSpec `yaml:"sub_items"`
}

type catalogFile struct {
	Modules []moduleSpec `yaml:"modules"`
}

// Provider holds the immutable module catalog loaded at startup.
type Provider struct {
	catalog domain.Catalog
}

// Catalog returns the loaded catalog.
func (p *Provider) Catalog() domain.Catalog {
	return p.catalog
}

// Load reads the catalog from the given YAML file, or from the embedded
// default when path is empty.
func Load(path string) (*Provider, error) {
	raw := defaultCatalogYAML
	if path != "" {
		fileRaw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		raw = fileRaw
	}

	return Parse(raw)
}

// Parse builds a provider from raw catalog YAML.
func Parse(raw []byte) (*Provider, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("unmarshal catalog yaml: %w", err)
	}

	modules := make([]domain.ModuleDescriptor, 0, len(file.Modules))
	for _, spec := range file.Modules {
		module := domain.ModuleDescriptor{ID: spec.ID, Name: spec.Name}
		for _, sub := range spec.SubItems {
			module.SubItems = append(module.SubItems, domain.SubItem{ID: sub.ID, Name: sub.Name})
		}
		modules = append(modules, module)
	}

	catalog, err := domain.NewCatalog(modules)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	return &Provider{catalog: catalog}, nil
}

var _ port.CatalogProvider = (*Provider)(nil)
