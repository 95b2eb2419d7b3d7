package schema

import (
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema.
// Deterministic ordering: type/directive names sorted lexicographically.
// Meta types, built-in scalars and built-in directives are omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	renderSchemaDefinition(&b, s)

	types := make([]*Type, 0, len(s.Types))
	for _, typ := range s.Types {
		if IsMeta(typ.Name) || (typ.Kind == KindScalar && IsBuiltinScalar(typ.Name)) {
			continue
		}
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	for _, typ := range types {
		switch typ.Kind {
		case KindScalar:
			renderScalar(&b, typ)
		case KindEnum:
			renderEnum(&b, typ)
		case KindInputObject:
			renderInputObject(&b, typ)
		case KindObject:
			renderFielded(&b, "type ", typ)
		case KindInterface:
			renderFielded(&b, "interface ", typ)
		case KindUnion:
			renderUnion(&b, typ)
		case KindList, KindNonNull:
			// wrappers never appear as named types
		default:
			panic("unreachable: " + typ.Kind.String())
		}
	}

	directives := make([]*Directive, 0, len(s.Directives))
	for _, d := range s.Directives {
		if !IsBuiltinDirective(d.Name) {
			directives = append(directives, d)
		}
	}
	sort.Slice(directives, func(i, j int) bool { return directives[i].Name < directives[j].Name })
	for _, d := range directives {
		renderDirective(&b, d)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ----- render helpers -----

// renderSchemaDefinition writes a schema block unless every root uses its
// conventional name.
func renderSchemaDefinition(b *strings.Builder, s *Schema) {
	conventional := s.QueryType == "Query" &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription")
	if conventional || s.QueryType == "" {
		return
	}
	b.WriteString("schema {\n  query: ")
	b.WriteString(s.QueryType)
	b.WriteString("\n")
	if s.MutationType != "" {
		b.WriteString("  mutation: ")
		b.WriteString(s.MutationType)
		b.WriteString("\n")
	}
	if s.SubscriptionType != "" {
		b.WriteString("  subscription: ")
		b.WriteString(s.SubscriptionType)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
	b.WriteString(indent)
	b.WriteString(strings.ReplaceAll(desc, `"""`, `\"""`))
	b.WriteString("\n")
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
}

func renderDeprecated(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		b.WriteString("(reason: ")
		b.WriteString(strconv.Quote(reason))
		b.WriteString(")")
	}
}

func renderScalar(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("scalar ")
	b.WriteString(typ.Name)
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("enum ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, val := range typ.EnumValues {
		renderDescription(b, val.Description, "  ")
		b.WriteString("  ")
		b.WriteString(val.Name)
		renderDeprecated(b, val.IsDeprecated, val.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("input ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, field := range typ.InputFields {
		renderDescription(b, field.Description, "  ")
		b.WriteString("  ")
		renderInputValue(b, field)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderFielded(b *strings.Builder, keyword string, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString(keyword)
	b.WriteString(typ.Name)
	if len(typ.Interfaces) > 0 {
		b.WriteString(" implements ")
		for i, iface := range typ.Interfaces {
			if i > 0 {
				b.WriteString(" & ")
			}
			b.WriteString(iface.Name)
		}
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("union ")
	b.WriteString(typ.Name)
	b.WriteString(" = ")
	for i, possibleType := range typ.PossibleTypes {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(possibleType.Name)
	}
	b.WriteString("\n\n")
}

func renderField(b *strings.Builder, field *Field) {
	renderDescription(b, field.Description, "  ")
	b.WriteString("  ")
	b.WriteString(field.Name)
	renderArgs(b, field.Args)
	b.WriteString(": ")
	b.WriteString(field.Type.String())
	renderDeprecated(b, field.IsDeprecated, field.DeprecationReason)
	b.WriteString("\n")
}

func renderArgs(b *strings.Builder, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		renderInputValue(b, arg)
	}
	b.WriteString(")")
}

func renderInputValue(b *strings.Builder, v *InputValue) {
	b.WriteString(v.Name)
	b.WriteString(": ")
	b.WriteString(v.Type.String())
	if v.DefaultValue != nil {
		b.WriteString(" = ")
		b.WriteString(*v.DefaultValue)
	}
}

func renderDirective(b *strings.Builder, directive *Directive) {
	renderDescription(b, directive.Description, "")
	b.WriteString("directive @")
	b.WriteString(directive.Name)
	renderArgs(b, directive.Args)
	if directive.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on ")
	b.WriteString(strings.Join(directive.Locations, " | "))
	b.WriteString("\n\n")
}
