package builder

import (
	schema "github.com/hanpama/opgen/internal/schema"
)

// DefaultMaxDepth bounds how many object levels a field tree expands. It is
// the only guard against cyclic schemas such as Transaction.parent.parent….
const DefaultMaxDepth = 4

// FieldTree is the bounded expansion of an output type into leaf fields and
// nested object fields.
type FieldTree struct {
	Scalar []*ScalarField
	Object []*ObjectField
}

// ScalarField is a leaf selection (scalar or enum).
type ScalarField struct {
	Name string
	Path string
}

// ObjectField is an object selection with its own subtree.
type ObjectField struct {
	Name   string
	Kind   schema.Kind // kind of the declared field type, before unwrapping
	Path   string
	Fields *FieldTree
}

// Empty reports whether the tree selects nothing.
func (t *FieldTree) Empty() bool {
	return t == nil || (len(t.Scalar) == 0 && len(t.Object) == 0)
}

// ResolveFieldTree expands t with the default depth bound.
func ResolveFieldTree(t *schema.Type, depth int, index TypeIndex) (*FieldTree, error) {
	return resolveFieldTree(t, depth, DefaultMaxDepth, index)
}

type fieldClass int

const (
	classSkip fieldClass = iota
	classLeaf
	classObject
)

// classify looks through NON_NULL and LIST wrappers to the named type.
// Interfaces expand like objects, through their own declared fields.
func classify(f *schema.Field) (fieldClass, *schema.Type) {
	named := f.Type.Named()
	if named == nil {
		return classSkip, nil
	}
	switch named.Kind {
	case schema.KindScalar, schema.KindEnum:
		return classLeaf, named
	case schema.KindObject, schema.KindInterface:
		return classObject, named
	case schema.KindUnion, schema.KindInputObject:
		// unions need fragments; input objects are invalid in output position
		return classSkip, named
	case schema.KindList, schema.KindNonNull:
		return classSkip, nil
	}
	panic("unreachable: " + named.Kind.String())
}

func resolveFieldTree(t *schema.Type, depth, maxDepth int, index TypeIndex) (*FieldTree, error) {
	tree := &FieldTree{}
	for _, f := range t.Fields {
		if class, _ := classify(f); class == classLeaf && f.Name != "" {
			tree.Scalar = append(tree.Scalar, &ScalarField{Name: f.Name})
		}
	}
	if depth >= maxDepth {
		return tree, nil
	}

	for _, f := range t.Fields {
		class, named := classify(f)
		if class != classObject {
			continue
		}
		sub, err := index.Lookup(named.Name, t.Name+"."+f.Name)
		if err != nil {
			return nil, err
		}
		fields, err := resolveFieldTree(sub, depth+1, maxDepth, index)
		if err != nil {
			return nil, err
		}
		tree.Object = append(tree.Object, &ObjectField{
			Name:   f.Name,
			Kind:   f.Type.Kind,
			Fields: fields,
		})
	}
	return tree, nil
}

// AnnotatePaths sets the dotted path of every field in tree, rooted at prefix.
// Running it twice with the same prefix yields the same paths.
func AnnotatePaths(tree *FieldTree, prefix string) {
	if tree == nil {
		return
	}
	for _, f := range tree.Scalar {
		f.Path = joinPath(prefix, f.Name)
	}
	for _, f := range tree.Object {
		f.Path = joinPath(prefix, f.Name)
		AnnotatePaths(f.Fields, f.Path)
	}
}

func joinPath(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + "." + name
}
