// Package values decodes call-site argument JSON into builder.Values,
// keeping the key order of the source text.
package values

import (
	"errors"
	"fmt"

	"github.com/wundergraph/astjson"

	builder "github.com/hanpama/opgen/internal/builder"
)

// ErrNotObject is returned when the arguments are not a JSON object.
var ErrNotObject = errors.New("arguments must be a JSON object")

// Parse decodes a JSON object. Objects become builder.Values, arrays []any,
// integral numbers int64 and other numbers float64. A JSON null yields nil
// Values, which builders treat as "no input".
func Parse(data []byte) (builder.Values, error) {
	v, err := astjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	switch v.Type() {
	case astjson.TypeNull:
		return nil, nil
	case astjson.TypeObject:
		return object(v)
	}
	return nil, fmt.Errorf("%w, got %s", ErrNotObject, v.Type())
}

// ParseString is Parse for string input.
func ParseString(s string) (builder.Values, error) { return Parse([]byte(s)) }

func object(v *astjson.Value) (builder.Values, error) {
	o, err := v.Object()
	if err != nil {
		return nil, err
	}
	out := make(builder.Values, 0, o.Len())
	var visitErr error
	o.Visit(func(key []byte, item *astjson.Value) {
		if visitErr != nil {
			return
		}
		decoded, err := decode(item)
		if err != nil {
			visitErr = fmt.Errorf("%s: %w", key, err)
			return
		}
		out = out.With(string(key), decoded)
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return out, nil
}

func decode(v *astjson.Value) (any, error) {
	switch v.Type() {
	case astjson.TypeNull:
		return nil, nil
	case astjson.TypeTrue:
		return true, nil
	case astjson.TypeFalse:
		return false, nil
	case astjson.TypeString:
		return string(v.GetStringBytes()), nil
	case astjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return v.Float64()
	case astjson.TypeArray:
		items := v.GetArray()
		out := make([]any, len(items))
		for i, item := range items {
			decoded, err := decode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = decoded
		}
		return out, nil
	case astjson.TypeObject:
		return object(v)
	}
	return nil, fmt.Errorf("unsupported JSON type %s", v.Type())
}
