package values

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	builder "github.com/hanpama/opgen/internal/builder"
	schema "github.com/hanpama/opgen/internal/schema"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsOrder(t *testing.T) {
	got, err := ParseString(`{
		"height": 123,
		"address": "xxx",
		"paging": {"size": 10, "cursor": null, "order": [{"type": "asc", "field": "height"}]},
		"ratio": 0.5,
		"ok": true,
		"off": false
	}`)
	require.NoError(t, err)

	want := builder.Values{
		{Name: "height", Value: int64(123)},
		{Name: "address", Value: "xxx"},
		{Name: "paging", Value: builder.Values{
			{Name: "size", Value: int64(10)},
			{Name: "cursor", Value: nil},
			{Name: "order", Value: []any{builder.Values{
				{Name: "type", Value: "asc"},
				{Name: "field", Value: "height"},
			}}},
		}},
		{Name: "ratio", Value: 0.5},
		{Name: "ok", Value: true},
		{Name: "off", Value: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestParseShapes(t *testing.T) {
	got, err := ParseString(`null`)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = ParseString(`{}`)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	_, err = ParseString(`[1, 2]`)
	require.ErrorIs(t, err, ErrNotObject)

	_, err = ParseString(`{"a": `)
	require.Error(t, err)
}

func TestParseFormatsInOrder(t *testing.T) {
	values, err := ParseString(`{"b": "two", "a": 1}`)
	require.NoError(t, err)
	specs := builder.ArgSpecs{
		{Name: "a", TypeName: "Int", Kind: schema.KindScalar},
		{Name: "b", TypeName: "String", Kind: schema.KindScalar},
	}
	out, err := builder.FormatArgs(values, specs)
	require.NoError(t, err)
	require.Equal(t, `b: "two", a: 1`, out)
}
