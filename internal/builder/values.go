package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Arg is one call-site argument value.
type Arg struct {
	Name  string
	Value any
}

// Values holds call-site argument values in caller order. Arguments are
// rendered in this order. A nil Values means "no input"; an empty non-nil
// Values is an input with no arguments.
//
// Nested input objects may be given as Values (ordered) or map[string]any
// (rendered in declaration order).
type Values []Arg

// Get returns the value for name.
func (v Values) Get(name string) (any, bool) {
	for _, a := range v {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// With returns v with name set to value, replacing an existing entry in place
// or appending a new one.
func (v Values) With(name string, value any) Values {
	out := make(Values, len(v), len(v)+1)
	copy(out, v)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Arg{Name: name, Value: value})
}

// Map converts v into a map, losing order.
func (v Values) Map() map[string]any {
	if v == nil {
		return nil
	}
	m := make(map[string]any, len(v))
	for _, a := range v {
		m[a.Name] = a.Value
	}
	return m
}

// ValuesOf converts a map into Values. Maps carry no insertion order, so keys
// are sorted. A nil map yields nil Values.
func ValuesOf(m map[string]any) Values {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(Values, 0, len(m))
	for _, name := range names {
		out = append(out, Arg{Name: name, Value: m[name]})
	}
	return out
}

// MarshalJSON encodes v as a JSON object with keys in order. Nil Values
// encode as null.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
