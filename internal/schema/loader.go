package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// schemaFile is the on-disk shape of a schema definition file.
type schemaFile struct {
	Schemas []*core.ObjectSchema `yaml:"schemas"`
}

// Load parses a YAML schema definition file into a resolved registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse builds a resolved registry from YAML schema definitions.
func Parse(data []byte) (*Registry, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	if len(f.Schemas) == 0 {
		return nil, fmt.Errorf("schema file defines no schemas")
	}

	reg := NewRegistry()
	for _, s := range f.Schemas {
		if err := reg.Add(s); err != nil {
			return nil, err
		}
	}
	if err := reg.ResolveLinks(); err != nil {
		return nil, err
	}
	return reg, nil
}
