package schema

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// FromAST converts a validated gqlparser schema into its introspection form.
// Types are ordered by name; fields, arguments and enum values keep their
// declaration order.
func FromAST(src *ast.Schema) (*Schema, error) {
	s := &Schema{Description: src.Description}
	if src.Query != nil {
		s.QueryType = src.Query.Name
	}
	if src.Mutation != nil {
		s.MutationType = src.Mutation.Name
	}
	if src.Subscription != nil {
		s.SubscriptionType = src.Subscription.Name
	}

	names := make([]string, 0, len(src.Types))
	for name := range src.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &astConverter{src: src}
	for _, name := range names {
		t, err := c.buildType(src.Types[name])
		if err != nil {
			return nil, err
		}
		s.Types = append(s.Types, t)
	}

	dirNames := make([]string, 0, len(src.Directives))
	for name := range src.Directives {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		d, err := c.buildDirective(src.Directives[name])
		if err != nil {
			return nil, err
		}
		s.Directives = append(s.Directives, d)
	}
	return s, nil
}

// BuildFromSDL parses and validates SDL and returns the corresponding Schema.
func BuildFromSDL(name, sdl string) (*Schema, error) {
	src, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return FromAST(src)
}

type astConverter struct {
	src *ast.Schema
}

func (c *astConverter) buildType(def *ast.Definition) (*Type, error) {
	kind, err := ParseKind(string(def.Kind))
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", def.Name, err)
	}
	t := &Type{Name: def.Name, Kind: kind, Description: def.Description}
	switch kind {
	case KindObject, KindInterface:
		for _, fd := range def.Fields {
			if IsMeta(fd.Name) {
				continue // gqlparser adds __schema and __type to the query root
			}
			f, err := c.buildField(fd)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", def.Name, err)
			}
			t.Fields = append(t.Fields, f)
		}
		for _, name := range def.Interfaces {
			t.Interfaces = append(t.Interfaces, NamedType(KindInterface, name))
		}
		if kind == KindInterface {
			for _, p := range c.src.GetPossibleTypes(def) {
				t.PossibleTypes = append(t.PossibleTypes, NamedType(KindObject, p.Name))
			}
		}
	case KindUnion:
		for _, name := range def.Types {
			t.PossibleTypes = append(t.PossibleTypes, NamedType(KindObject, name))
		}
	case KindEnum:
		for _, ev := range def.EnumValues {
			v := &EnumValue{Name: ev.Name, Description: ev.Description}
			v.IsDeprecated, v.DeprecationReason = deprecation(ev.Directives)
			t.EnumValues = append(t.EnumValues, v)
		}
	case KindInputObject:
		for _, fd := range def.Fields {
			ref, err := c.buildTypeRef(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("input %s.%s: %w", def.Name, fd.Name, err)
			}
			t.InputFields = append(t.InputFields, &InputValue{
				Name:         fd.Name,
				Description:  fd.Description,
				Type:         ref,
				DefaultValue: literal(fd.DefaultValue),
			})
		}
	case KindScalar:
	case KindList, KindNonNull:
		return nil, fmt.Errorf("type %s: wrapper kind %s cannot be a named type", def.Name, kind)
	default:
		panic("unreachable: " + kind.String())
	}
	return t, nil
}

func (c *astConverter) buildField(fd *ast.FieldDefinition) (*Field, error) {
	ref, err := c.buildTypeRef(fd.Type)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	f := &Field{Name: fd.Name, Description: fd.Description, Type: ref}
	f.IsDeprecated, f.DeprecationReason = deprecation(fd.Directives)
	args, err := c.buildArgs(fd.Arguments)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	f.Args = args
	return f, nil
}

func (c *astConverter) buildArgs(list ast.ArgumentDefinitionList) ([]*InputValue, error) {
	args := make([]*InputValue, 0, len(list))
	for _, ad := range list {
		ref, err := c.buildTypeRef(ad.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", ad.Name, err)
		}
		args = append(args, &InputValue{
			Name:         ad.Name,
			Description:  ad.Description,
			Type:         ref,
			DefaultValue: literal(ad.DefaultValue),
		})
	}
	return args, nil
}

func (c *astConverter) buildTypeRef(t *ast.Type) (*Type, error) {
	var ref *Type
	if t.Elem != nil {
		elem, err := c.buildTypeRef(t.Elem)
		if err != nil {
			return nil, err
		}
		ref = ListType(elem)
	} else {
		def := c.src.Types[t.NamedType]
		if def == nil {
			return nil, fmt.Errorf("unknown type %q", t.NamedType)
		}
		kind, err := ParseKind(string(def.Kind))
		if err != nil {
			return nil, err
		}
		ref = NamedType(kind, def.Name)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref, nil
}

func (c *astConverter) buildDirective(def *ast.DirectiveDefinition) (*Directive, error) {
	d := &Directive{Name: def.Name, Description: def.Description, IsRepeatable: def.IsRepeatable}
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	args, err := c.buildArgs(def.Arguments)
	if err != nil {
		return nil, fmt.Errorf("directive @%s: %w", def.Name, err)
	}
	d.Args = args
	return d, nil
}

func deprecation(dirs ast.DirectiveList) (bool, string) {
	dep := dirs.ForName("deprecated")
	if dep == nil {
		return false, ""
	}
	if reason := dep.Arguments.ForName("reason"); reason != nil && reason.Value != nil {
		return true, reason.Value.Raw
	}
	return true, ""
}

func literal(v *ast.Value) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
