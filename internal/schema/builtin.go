package schema

// Built-in scalar names every GraphQL schema has.
const (
	String  = "String"
	Int     = "Int"
	Float   = "Float"
	Boolean = "Boolean"
	ID      = "ID"
)

// IsBuiltinScalar reports whether name is one of the specified scalars.
func IsBuiltinScalar(name string) bool {
	switch name {
	case String, Int, Float, Boolean, ID:
		return true
	}
	return false
}

var builtinDirectives = map[string]bool{
	"include":     true,
	"skip":        true,
	"deprecated":  true,
	"specifiedBy": true,
	"oneOf":       true,
	"defer":       true,
}

// IsBuiltinDirective reports whether name is a directive every server predefines.
func IsBuiltinDirective(name string) bool { return builtinDirectives[name] }
