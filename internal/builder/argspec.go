package builder

import (
	schema "github.com/hanpama/opgen/internal/schema"
)

// ArgSpec is the normalized shape of a declared argument or input field.
type ArgSpec struct {
	Name  string
	Input *schema.InputValue // declared descriptor

	TypeName     string      // concrete named type
	Kind         schema.Kind // kind of the concrete named type
	Required     bool        // outermost wrapper is NON_NULL
	ListDepth    int         // number of LIST wrappers
	ElemRequired bool        // innermost list elements are NON_NULL
	EnumValues   []string    // allowed values for ENUM
	Fields       ArgSpecs    // expansion of INPUT_OBJECT fields
}

// ArgSpecs is an ordered argument table in declaration order.
type ArgSpecs []*ArgSpec

// Lookup returns the spec named name, or nil.
func (s ArgSpecs) Lookup(name string) *ArgSpec {
	for _, spec := range s {
		if spec.Name == name {
			return spec
		}
	}
	return nil
}

// Names lists the argument names in declaration order.
func (s ArgSpecs) Names() []string {
	names := make([]string, len(s))
	for i, spec := range s {
		names[i] = spec.Name
	}
	return names
}

// Required lists the names of required arguments.
func (s ArgSpecs) Required() []string {
	var names []string
	for _, spec := range s {
		if spec.Required {
			names = append(names, spec.Name)
		}
	}
	return names
}

// ExtractArgSpecs normalizes declared arguments with the default depth bound.
func ExtractArgSpecs(args []*schema.InputValue, index TypeIndex) (ArgSpecs, error) {
	return extractArgSpecs(args, "", 0, DefaultMaxDepth, index)
}

func extractArgSpecs(args []*schema.InputValue, owner string, depth, maxDepth int, index TypeIndex) (ArgSpecs, error) {
	specs := make(ArgSpecs, 0, len(args))
	for _, arg := range args {
		spec, err := extractArgSpec(arg, joinPath(owner, arg.Name), depth, maxDepth, index)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func extractArgSpec(arg *schema.InputValue, path string, depth, maxDepth int, index TypeIndex) (*ArgSpec, error) {
	spec := &ArgSpec{Name: arg.Name, Input: arg, Required: arg.Type.IsNonNull()}

	t := arg.Type
	for t != nil && t.Kind.IsWrapper() {
		if t.Kind == schema.KindList {
			spec.ListDepth++
			spec.ElemRequired = t.OfType.IsNonNull()
		}
		t = t.OfType
	}
	if t == nil {
		return nil, &SchemaResolutionError{Field: path}
	}
	spec.TypeName, spec.Kind = t.Name, t.Kind

	switch t.Kind {
	case schema.KindScalar:
	case schema.KindEnum:
		def, err := index.Lookup(t.Name, path)
		if err != nil {
			return nil, err
		}
		for _, ev := range def.EnumValues {
			spec.EnumValues = append(spec.EnumValues, ev.Name)
		}
	case schema.KindInputObject:
		def, err := index.Lookup(t.Name, path)
		if err != nil {
			return nil, err
		}
		if depth < maxDepth {
			fields, err := extractArgSpecs(def.InputFields, path, depth+1, maxDepth, index)
			if err != nil {
				return nil, err
			}
			spec.Fields = fields
		}
	case schema.KindObject, schema.KindInterface, schema.KindUnion:
		// output types are invalid as arguments; values fall back to generic literals
	case schema.KindList, schema.KindNonNull:
		panic("unreachable: wrappers are unwrapped above")
	default:
		panic("unreachable: " + t.Kind.String())
	}
	return spec, nil
}
