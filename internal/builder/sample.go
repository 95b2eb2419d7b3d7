package builder

import (
	schema "github.com/hanpama/opgen/internal/schema"
)

// Placeholder values used by SampleValues.
const (
	SampleString  = "abc"
	SampleInt     = 123
	SampleFloat   = 123.456
	SampleBoolean = true
)

// SampleValues returns example values for every spec, in declaration order:
// placeholder scalars, the first enum value, one-element lists and recursively
// filled input objects. Useful for documentation and smoke tests.
func SampleValues(specs ArgSpecs) Values {
	out := make(Values, 0, len(specs))
	for _, spec := range specs {
		out = append(out, Arg{Name: spec.Name, Value: sampleValue(spec, 0)})
	}
	return out
}

// SampleInput returns example values for the fields of an input object type.
func SampleInput(t *schema.Type, index TypeIndex) (Values, error) {
	specs, err := extractArgSpecs(t.InputFields, t.Name, 0, DefaultMaxDepth, index)
	if err != nil {
		return nil, err
	}
	return SampleValues(specs), nil
}

func sampleValue(spec *ArgSpec, level int) any {
	if level < spec.ListDepth {
		return []any{sampleValue(spec, level+1)}
	}
	switch spec.Kind {
	case schema.KindScalar:
		switch spec.TypeName {
		case schema.Int:
			return SampleInt
		case schema.Float:
			return SampleFloat
		case schema.Boolean:
			return SampleBoolean
		}
		return SampleString
	case schema.KindEnum:
		if len(spec.EnumValues) == 0 {
			return nil
		}
		return spec.EnumValues[0]
	case schema.KindInputObject:
		return SampleValues(spec.Fields)
	case schema.KindObject, schema.KindInterface, schema.KindUnion:
		return nil
	case schema.KindList, schema.KindNonNull:
		panic("unreachable: specs hold unwrapped kinds")
	}
	panic("unreachable: " + spec.Kind.String())
}
