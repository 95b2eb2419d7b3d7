package builder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArgumentValidation is the parent of every call-time argument error.
var ErrArgumentValidation = errors.New("argument validation failed")

// ErrMissingArguments is returned when an operation that declares arguments is
// built from nil values.
var ErrMissingArguments = fmt.Errorf("%w: cannot build arguments from no input", ErrArgumentValidation)

// SchemaResolutionError reports a type referenced by the schema that the type
// index does not contain.
type SchemaResolutionError struct {
	TypeName string
	Field    string // referencing field or argument, "Type.field" when known
}

func (e *SchemaResolutionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unknown type %q", e.TypeName)
	}
	return fmt.Sprintf("unknown type %q referenced by %s", e.TypeName, e.Field)
}

// MissingRequiredArgumentError lists required arguments that were absent or
// falsy at call time.
type MissingRequiredArgumentError struct {
	Names []string
}

func (e *MissingRequiredArgumentError) Error() string {
	return "required argument missing: " + strings.Join(e.Names, ", ")
}

func (e *MissingRequiredArgumentError) Unwrap() error { return ErrArgumentValidation }

// InvalidValueError reports an argument value that has no GraphQL literal.
type InvalidValueError struct {
	Path   string
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid argument value %v: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid value %v for argument %s: %s", e.Value, e.Path, e.Reason)
}

func (e *InvalidValueError) Unwrap() error { return ErrArgumentValidation }
