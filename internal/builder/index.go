package builder

import (
	schema "github.com/hanpama/opgen/internal/schema"
)

// TypeIndex maps type names to their descriptors. Meta types are never
// present. It is read-only once built.
type TypeIndex map[string]*schema.Type

// NewTypeIndex indexes types by name, skipping "__"-prefixed meta types.
func NewTypeIndex(types []*schema.Type) TypeIndex {
	index := make(TypeIndex, len(types))
	for _, t := range types {
		if t == nil || t.Name == "" || schema.IsMeta(t.Name) {
			continue
		}
		index[t.Name] = t
	}
	return index
}

// Lookup returns the named type or a *SchemaResolutionError.
func (ix TypeIndex) Lookup(name, referencedBy string) (*schema.Type, error) {
	if t, ok := ix[name]; ok {
		return t, nil
	}
	return nil, &SchemaResolutionError{TypeName: name, Field: referencedBy}
}
