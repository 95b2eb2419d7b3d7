// Package introspection decodes GraphQL introspection results into
// schema.Schema values and encodes them back.
package introspection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	schema "github.com/hanpama/opgen/internal/schema"
)

// ErrNoSchema is returned when a document carries no __schema object.
var ErrNoSchema = errors.New("introspection result has no __schema")

type namedRef struct {
	Name string `json:"name"`
}

type wireSchema struct {
	Description      *string          `json:"description,omitempty"`
	QueryType        *namedRef        `json:"queryType"`
	MutationType     *namedRef        `json:"mutationType"`
	SubscriptionType *namedRef        `json:"subscriptionType"`
	Types            []*wireType      `json:"types"`
	Directives       []*wireDirective `json:"directives,omitempty"`
}

type wireType struct {
	Kind          schema.Kind      `json:"kind"`
	Name          *string          `json:"name"`
	Description   *string          `json:"description,omitempty"`
	Fields        []*wireField     `json:"fields,omitempty"`
	InputFields   []*wireInput     `json:"inputFields,omitempty"`
	Interfaces    []*wireType      `json:"interfaces,omitempty"`
	PossibleTypes []*wireType      `json:"possibleTypes,omitempty"`
	EnumValues    []*wireEnumValue `json:"enumValues,omitempty"`
	OfType        *wireType        `json:"ofType,omitempty"`
}

type wireField struct {
	Name              string       `json:"name"`
	Description       *string      `json:"description,omitempty"`
	Args              []*wireInput `json:"args"`
	Type              *wireType    `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason *string      `json:"deprecationReason,omitempty"`
}

type wireInput struct {
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Type         *wireType `json:"type"`
	DefaultValue *string   `json:"defaultValue"`
}

type wireEnumValue struct {
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason,omitempty"`
}

type wireDirective struct {
	Name         string       `json:"name"`
	Description  *string      `json:"description,omitempty"`
	Locations    []string     `json:"locations"`
	Args         []*wireInput `json:"args"`
	IsRepeatable bool         `json:"isRepeatable"`
}

// Parse decodes an introspection result. It accepts a full GraphQL response
// ({"data":{"__schema":…}}), the data object ({"__schema":…}) or the bare
// schema object.
func Parse(data []byte) (*schema.Schema, error) {
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Schema json.RawMessage `json:"__schema"`
		Types  json.RawMessage `json:"types"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode introspection: %w", err)
	}
	raw := data
	switch {
	case len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")):
		return Parse(envelope.Data)
	case len(envelope.Schema) > 0:
		raw = envelope.Schema
	case len(envelope.Types) > 0:
	default:
		return nil, ErrNoSchema
	}

	var ws wireSchema
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode introspection: %w", err)
	}
	s, err := ws.toSchema()
	if err != nil {
		return nil, fmt.Errorf("decode introspection: %w", err)
	}
	return s, nil
}

// Marshal encodes s as a {"__schema":…} introspection object.
func Marshal(s *schema.Schema) ([]byte, error) {
	out := struct {
		Schema *wireSchema `json:"__schema"`
	}{Schema: fromSchema(s)}
	return json.MarshalIndent(out, "", "  ")
}

// ----- wire -> schema -----

func (ws *wireSchema) toSchema() (*schema.Schema, error) {
	s := &schema.Schema{Description: deref(ws.Description)}
	if ws.QueryType != nil {
		s.QueryType = ws.QueryType.Name
	}
	if ws.MutationType != nil {
		s.MutationType = ws.MutationType.Name
	}
	if ws.SubscriptionType != nil {
		s.SubscriptionType = ws.SubscriptionType.Name
	}
	for _, wt := range ws.Types {
		if wt == nil {
			continue
		}
		t, err := wt.toType()
		if err != nil {
			return nil, err
		}
		s.Types = append(s.Types, t)
	}
	for _, wd := range ws.Directives {
		args, err := toInputs(wd.Args)
		if err != nil {
			return nil, fmt.Errorf("directive @%s: %w", wd.Name, err)
		}
		s.Directives = append(s.Directives, &schema.Directive{
			Name:         wd.Name,
			Description:  deref(wd.Description),
			Locations:    wd.Locations,
			Args:         args,
			IsRepeatable: wd.IsRepeatable,
		})
	}
	return s, nil
}

// toType converts a type or type reference. Every reference must carry a
// kind, and wrappers must carry the type they wrap.
func (wt *wireType) toType() (*schema.Type, error) {
	if wt == nil {
		return nil, nil
	}
	name := deref(wt.Name)
	if wt.Kind == 0 {
		return nil, fmt.Errorf("type %q: missing kind", name)
	}
	ofType, err := wt.OfType.toType()
	if err != nil {
		return nil, err
	}
	if wt.Kind.IsWrapper() && ofType == nil {
		return nil, fmt.Errorf("%s type reference: missing ofType", wt.Kind)
	}
	inputs, err := toInputs(wt.InputFields)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", name, err)
	}
	t := &schema.Type{
		Name:        name,
		Kind:        wt.Kind,
		Description: deref(wt.Description),
		InputFields: inputs,
		OfType:      ofType,
	}
	for _, f := range wt.Fields {
		ref, err := f.Type.toType()
		if err != nil {
			return nil, fmt.Errorf("type %s: field %s: %w", name, f.Name, err)
		}
		args, err := toInputs(f.Args)
		if err != nil {
			return nil, fmt.Errorf("type %s: field %s: %w", name, f.Name, err)
		}
		t.Fields = append(t.Fields, &schema.Field{
			Name:              f.Name,
			Description:       deref(f.Description),
			Type:              ref,
			Args:              args,
			IsDeprecated:      f.IsDeprecated,
			DeprecationReason: deref(f.DeprecationReason),
		})
	}
	for _, i := range wt.Interfaces {
		ref, err := i.toType()
		if err != nil {
			return nil, fmt.Errorf("type %s: interfaces: %w", name, err)
		}
		t.Interfaces = append(t.Interfaces, ref)
	}
	for _, p := range wt.PossibleTypes {
		ref, err := p.toType()
		if err != nil {
			return nil, fmt.Errorf("type %s: possibleTypes: %w", name, err)
		}
		t.PossibleTypes = append(t.PossibleTypes, ref)
	}
	for _, ev := range wt.EnumValues {
		t.EnumValues = append(t.EnumValues, &schema.EnumValue{
			Name:              ev.Name,
			Description:       deref(ev.Description),
			IsDeprecated:      ev.IsDeprecated,
			DeprecationReason: deref(ev.DeprecationReason),
		})
	}
	return t, nil
}

func toInputs(in []*wireInput) ([]*schema.InputValue, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]*schema.InputValue, 0, len(in))
	for _, v := range in {
		ref, err := v.Type.toType()
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", v.Name, err)
		}
		out = append(out, &schema.InputValue{
			Name:         v.Name,
			Description:  deref(v.Description),
			Type:         ref,
			DefaultValue: v.DefaultValue,
		})
	}
	return out, nil
}

// ----- schema -> wire -----

func fromSchema(s *schema.Schema) *wireSchema {
	ws := &wireSchema{Description: ptr(s.Description), Types: []*wireType{}}
	if s.QueryType != "" {
		ws.QueryType = &namedRef{Name: s.QueryType}
	}
	if s.MutationType != "" {
		ws.MutationType = &namedRef{Name: s.MutationType}
	}
	if s.SubscriptionType != "" {
		ws.SubscriptionType = &namedRef{Name: s.SubscriptionType}
	}
	for _, t := range s.Types {
		ws.Types = append(ws.Types, fromType(t))
	}
	for _, d := range s.Directives {
		ws.Directives = append(ws.Directives, &wireDirective{
			Name:         d.Name,
			Description:  ptr(d.Description),
			Locations:    d.Locations,
			Args:         fromInputs(d.Args),
			IsRepeatable: d.IsRepeatable,
		})
	}
	return ws
}

func fromType(t *schema.Type) *wireType {
	if t == nil {
		return nil
	}
	wt := &wireType{
		Kind:        t.Kind,
		Name:        ptr(t.Name),
		Description: ptr(t.Description),
		InputFields: fromInputs(t.InputFields),
		OfType:      fromType(t.OfType),
	}
	for _, f := range t.Fields {
		wt.Fields = append(wt.Fields, &wireField{
			Name:              f.Name,
			Description:       ptr(f.Description),
			Args:              fromInputs(f.Args),
			Type:              fromType(f.Type),
			IsDeprecated:      f.IsDeprecated,
			DeprecationReason: ptr(f.DeprecationReason),
		})
	}
	for _, i := range t.Interfaces {
		wt.Interfaces = append(wt.Interfaces, fromType(i))
	}
	for _, p := range t.PossibleTypes {
		wt.PossibleTypes = append(wt.PossibleTypes, fromType(p))
	}
	for _, ev := range t.EnumValues {
		wt.EnumValues = append(wt.EnumValues, &wireEnumValue{
			Name:              ev.Name,
			Description:       ptr(ev.Description),
			IsDeprecated:      ev.IsDeprecated,
			DeprecationReason: ptr(ev.DeprecationReason),
		})
	}
	return wt
}

func fromInputs(in []*schema.InputValue) []*wireInput {
	out := make([]*wireInput, 0, len(in))
	for _, v := range in {
		out = append(out, &wireInput{
			Name:         v.Name,
			Description:  ptr(v.Description),
			Type:         fromType(v.Type),
			DefaultValue: v.DefaultValue,
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
