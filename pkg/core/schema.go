// Package core defines the shared domain types for starstore: object
// schemas, property descriptors, and the error taxonomy used across the
// store and binding layers.
package core

import "fmt"

// PropertyType identifies the storage type of a schema property.
type PropertyType string

const (
	TypeString PropertyType = "string"
	TypeInt    PropertyType = "int"
	TypeFloat  PropertyType = "float"
	TypeBool   PropertyType = "bool"
	TypeBytes  PropertyType = "bytes"

	// TypeLink is a single reference to an object of another schema.
	TypeLink PropertyType = "link"

	// TypeList is an ordered collection of references to objects of
	// another schema (a link list).
	TypeList PropertyType = "list"
)

// Property describes one property of an object schema.
type Property struct {
	Name string       `yaml:"name"`
	Type PropertyType `yaml:"type"`

	// ObjectType names the target schema for link and list properties.
	ObjectType string `yaml:"object_type,omitempty"`
}

// IsScalar reports whether the property is stored inline in the object
// payload rather than in the links table.
func (p *Property) IsScalar() bool {
	return p.Type != TypeLink && p.Type != TypeList
}

// ObjectSchema describes a named object type.
type ObjectSchema struct {
	Name       string      `yaml:"name"`
	Properties []*Property `yaml:"properties"`
}

// Property returns the named property, or nil if the schema has no such
// property.
func (s *ObjectSchema) Property(name string) *Property {
	for _, p := range s.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Validate checks the schema for structural problems: missing names,
// unknown property types, duplicate properties, and link properties
// without a target type.
func (s *ObjectSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema has no name")
	}
	seen := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		if p.Name == "" {
			return fmt.Errorf("schema %q: property has no name", s.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("schema %q: duplicate property %q", s.Name, p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case TypeString, TypeInt, TypeFloat, TypeBool, TypeBytes:
		case TypeLink, TypeList:
			if p.ObjectType == "" {
				return fmt.Errorf("schema %q: property %q: %s properties require object_type", s.Name, p.Name, p.Type)
			}
		default:
			return fmt.Errorf("schema %q: property %q: unknown type %q", s.Name, p.Name, p.Type)
		}
	}
	return nil
}
