package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a catalog.
type File struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Load reads a YAML catalog. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading style file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing style file %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("style file %s has no rules", path)
	}
	return New(f.Rules...)
}

// MarshalYAML renders the catalog in the same form Load reads.
func (c *Catalog) MarshalYAML() (any, error) {
	return File{Rules: c.Rules()}, nil
}
