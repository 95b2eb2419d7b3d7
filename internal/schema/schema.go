package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Schema is an introspected GraphQL schema.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            []*Type // All types in introspection order
	Directives       []*Directive
	Description      string
}

// Type finds a named type by name (nil if absent).
func (s *Schema) Type(name string) *Type {
	if s == nil || name == "" {
		return nil
	}
	for _, t := range s.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Type(s.QueryType) }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Type(s.MutationType) }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Type(s.SubscriptionType) }

// Type is a node of the introspection type system. Named types carry a Name;
// LIST and NON_NULL wrappers carry OfType instead.
type Type struct {
	Name          string
	Kind          Kind
	Description   string
	Fields        []*Field      // For OBJECT and INTERFACE
	InputFields   []*InputValue // For INPUT_OBJECT
	Interfaces    []*Type       // For OBJECT and INTERFACE
	PossibleTypes []*Type       // For INTERFACE and UNION
	EnumValues    []*EnumValue  // For ENUM
	OfType        *Type         // For LIST and NON_NULL
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *Type
	Args              []*InputValue
	IsDeprecated      bool
	DeprecationReason string
}

// InputValue is an argument or an input object field.
type InputValue struct {
	Name         string
	Description  string
	Type         *Type
	DefaultValue *string // GraphQL literal, as introspection reports it
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Args         []*InputValue
	IsRepeatable bool
}

// Kind is the closed set of GraphQL type kinds.
type Kind uint8

const (
	KindScalar Kind = iota + 1
	KindObject
	KindInterface
	KindUnion
	KindEnum
	KindInputObject
	KindList
	KindNonNull
)

var kindNames = [...]string{
	KindScalar:      "SCALAR",
	KindObject:      "OBJECT",
	KindInterface:   "INTERFACE",
	KindUnion:       "UNION",
	KindEnum:        "ENUM",
	KindInputObject: "INPUT_OBJECT",
	KindList:        "LIST",
	KindNonNull:     "NON_NULL",
}

func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind maps an introspection kind name to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown type kind %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsWrapper reports whether the kind wraps another type (LIST or NON_NULL).
func (k Kind) IsWrapper() bool {
	switch k {
	case KindList, KindNonNull:
		return true
	case KindScalar, KindObject, KindInterface, KindUnion, KindEnum, KindInputObject:
		return false
	}
	panic("unreachable: " + k.String())
}

// IsLeaf reports whether values of the kind are selected without a selection set.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindScalar, KindEnum:
		return true
	case KindObject, KindInterface, KindUnion, KindInputObject, KindList, KindNonNull:
		return false
	}
	panic("unreachable: " + k.String())
}

func NonNullType(t *Type) *Type { return &Type{Kind: KindNonNull, OfType: t} }
func ListType(t *Type) *Type    { return &Type{Kind: KindList, OfType: t} }

// NamedType returns a reference to a named type. Only Kind and Name are set,
// which is what introspection reports for type references.
func NamedType(kind Kind, name string) *Type { return &Type{Kind: kind, Name: name} }

func (t *Type) IsNonNull() bool { return t != nil && t.Kind == KindNonNull }

// IsList reports whether the type is a list, possibly behind a Non-Null.
func (t *Type) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == KindList {
		return true
	}
	return t.Kind == KindNonNull && t.OfType != nil && t.OfType.Kind == KindList
}

// Unwrap removes one layer of Non-Null or List wrapping.
func (t *Type) Unwrap() *Type {
	if t != nil && t.Kind.IsWrapper() {
		return t.OfType
	}
	return t
}

// Named returns the innermost named type reference.
func (t *Type) Named() *Type {
	current := t
	for current != nil && current.Kind.IsWrapper() {
		current = current.OfType
	}
	return current
}

// GetNamedType returns the innermost named type name.
func (t *Type) GetNamedType() string {
	if n := t.Named(); n != nil {
		return n.Name
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[String!]!".
func (t *Type) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case KindNonNull:
		return t.OfType.String() + "!"
	case KindList:
		return "[" + t.OfType.String() + "]"
	}
	return t.Name
}

// IsMeta reports whether name uses the reserved introspection prefix.
func IsMeta(name string) bool { return strings.HasPrefix(name, "__") }
