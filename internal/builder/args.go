package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	schema "github.com/hanpama/opgen/internal/schema"
)

// FormatArgs renders values as a GraphQL argument list ("a: 1, b: \"x\"").
//
// Validation: nil values fail with ErrMissingArguments; a required spec whose
// value is absent or falsy (nil, false, 0, "", nil pointer/map/slice) fails
// with *MissingRequiredArgumentError. Required fields of nested input objects
// fail only when absent or nil.
//
// Values without a matching spec are dropped without error: specs act as an
// allow-list, so callers can pass a superset of an operation's arguments.
func FormatArgs(values Values, specs ArgSpecs) (string, error) {
	if values == nil {
		return "", ErrMissingArguments
	}

	var missing []string
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if v, ok := values.Get(spec.Name); !ok || isFalsy(v) {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingRequiredArgumentError{Names: missing}
	}

	parts := make([]string, 0, len(values))
	for _, arg := range allowed(values, specs) {
		lit, err := formatValue(arg.Value, arg.spec, 0, arg.Name)
		if err != nil {
			return "", err
		}
		parts = append(parts, arg.Name+": "+lit)
	}
	return strings.Join(parts, ", "), nil
}

type specArg struct {
	Arg
	spec *ArgSpec
}

// allowed keeps the values that have a spec, in values order.
func allowed(values Values, specs ArgSpecs) []specArg {
	out := make([]specArg, 0, len(values))
	for _, a := range values {
		if spec := specs.Lookup(a.Name); spec != nil {
			out = append(out, specArg{Arg: a, spec: spec})
		}
	}
	return out
}

// formatValue renders v according to spec; level counts the list wrappers
// already consumed.
func formatValue(v any, spec *ArgSpec, level int, path string) (string, error) {
	v = indirect(v)
	if v == nil {
		return "null", nil
	}
	if spec == nil {
		return genericLiteral(v)
	}
	if level < spec.ListDepth {
		items, ok := listItems(v)
		if !ok {
			// input coercion accepts a single item for a list
			return formatValue(v, spec, spec.ListDepth, path)
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			lit, err := formatValue(item, spec, level+1, path)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}

	switch spec.Kind {
	case schema.KindScalar:
		lit, err := formatScalar(spec.TypeName, v)
		var invalid *InvalidValueError
		if errors.As(err, &invalid) && invalid.Path == "" {
			invalid.Path = path
		}
		return lit, err
	case schema.KindEnum:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case schema.KindInputObject:
		if spec.Fields == nil {
			return genericLiteral(v)
		}
		return formatObject(v, spec.Fields, path)
	case schema.KindObject, schema.KindInterface, schema.KindUnion:
		return genericLiteral(v)
	case schema.KindList, schema.KindNonNull:
		panic("unreachable: specs hold unwrapped kinds")
	}
	panic("unreachable: " + spec.Kind.String())
}

func formatScalar(typeName string, v any) (string, error) {
	switch v.(type) {
	case float32, float64:
		if _, err := floatLiteral(v); err != nil {
			return "", err
		}
	}
	switch typeName {
	case schema.String, schema.ID:
		return quote(scalarString(v)), nil
	case schema.Int, schema.Float, schema.Boolean:
		return scalarString(v), nil
	}
	if s, ok := v.(string); ok {
		return quote(s), nil
	}
	if isStructured(v) {
		return genericLiteral(v)
	}
	return scalarString(v), nil
}

func formatObject(v any, fields ArgSpecs, path string) (string, error) {
	var entries []specArg
	switch obj := v.(type) {
	case Values:
		entries = allowed(obj, fields)
	default:
		m, ok := toStringMap(v)
		if !ok {
			return genericLiteral(v)
		}
		for _, spec := range fields {
			if val, ok := m[spec.Name]; ok {
				entries = append(entries, specArg{Arg: Arg{Name: spec.Name, Value: val}, spec: spec})
			}
		}
	}

	var missing []string
	for _, spec := range fields {
		if !spec.Required {
			continue
		}
		found := false
		for _, e := range entries {
			if e.Name == spec.Name && e.Value != nil {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, joinPath(path, spec.Name))
		}
	}
	if len(missing) > 0 {
		return "", &MissingRequiredArgumentError{Names: missing}
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		lit, err := formatValue(e.Value, e.spec, 0, joinPath(path, e.Name))
		if err != nil {
			return "", err
		}
		parts = append(parts, e.Name+": "+lit)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// genericLiteral renders v without type information: strings quoted, numbers
// and booleans bare, maps as {key: value} with bareword keys, slices as lists.
// Enum values inside such literals come out quoted; typed specs avoid that.
func genericLiteral(v any) (string, error) {
	v = indirect(v)
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(x), nil
	case json.Number:
		return x.String(), nil
	case float32, float64:
		return floatLiteral(x)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return scalarString(x), nil
	case Values:
		parts := make([]string, 0, len(x))
		for _, a := range x {
			lit, err := genericLiteral(a.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, a.Name+": "+lit)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	}

	if items, ok := listItems(v); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			lit, err := genericLiteral(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	if m, ok := toStringMap(v); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			lit, err := genericLiteral(m[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, k+": "+lit)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	}

	// structs and other types go through their JSON form
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode argument value: %w", err)
	}
	var decoded any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return "", fmt.Errorf("encode argument value: %w", err)
	}
	return genericLiteral(decoded)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// floatLiteral renders a float argument; NaN and infinities have no
// GraphQL literal.
func floatLiteral(v any) (string, error) {
	f, bitSize := 0.0, 64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f, bitSize = float64(x), 32
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", &InvalidValueError{Value: v, Reason: "not a finite number"}
	}
	return formatFloat(f, bitSize), nil
}

// indirect follows pointers. A nil pointer yields nil.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// formatFloat prints integral values without an exponent so that whole
// numbers stay valid Int literals.
func formatFloat(f float64, bitSize int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

func isStructured(v any) bool {
	if _, ok := v.(Values); ok {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

func listItems(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false // []byte is a string-ish scalar
		}
	case reflect.Array:
	default:
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func toStringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// isFalsy mirrors the loose truthiness check call sites have always relied on
// for required arguments.
func isFalsy(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// quote renders s as a GraphQL string literal.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
