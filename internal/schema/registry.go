// Package schema loads and resolves starstore object schemas from YAML
// definition files.
package schema

import (
	"fmt"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// Registry holds the resolved set of object schemas for a store.
type Registry struct {
	schemas map[string]*core.ObjectSchema
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*core.ObjectSchema)}
}

// Add validates and registers a schema. Duplicate names are an error.
func (r *Registry) Add(s *core.ObjectSchema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := r.schemas[s.Name]; ok {
		return fmt.Errorf("duplicate schema %q", s.Name)
	}
	r.schemas[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// Get returns the named schema, or an error if it is not registered.
func (r *Registry) Get(name string) (*core.ObjectSchema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Names returns schema names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ResolveLinks checks that every link and list property targets a
// registered schema. Called after all schemas are added.
func (r *Registry) ResolveLinks() error {
	for _, name := range r.order {
		s := r.schemas[name]
		for _, p := range s.Properties {
			if p.IsScalar() {
				continue
			}
			if _, ok := r.schemas[p.ObjectType]; !ok {
				return fmt.Errorf("schema %q: property %q targets unknown schema %q", s.Name, p.Name, p.ObjectType)
			}
		}
	}
	return nil
}
