package builder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSampleInput(t *testing.T) {
	index := chainIndex(t)
	got, err := SampleInput(index["PageInput"], index)
	require.NoError(t, err)

	want := Values{
		{Name: "cursor", Value: "abc"},
		{Name: "size", Value: 123},
		{Name: "order", Value: []any{Values{
			{Name: "field", Value: "abc"},
			{Name: "type", Value: "abc"},
		}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sample mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleValuesBuild(t *testing.T) {
	specs := querySpecs(t, "listTransactions")
	values := SampleValues(specs)
	require.Equal(t, specs.Names(), []string{values[0].Name, values[1].Name, values[2].Name})

	direction, ok := values[2].Value.(Values).Get("direction")
	require.True(t, ok)
	require.Equal(t, "UNION", direction)

	doc, err := queryBuilders(t)["listTransactions"].Build(values, IgnoreFields("transactions"))
	require.NoError(t, err)
	require.Equal(t,
		`{ listTransactions(`+
			`paging: {cursor: "abc", size: 123, order: [{field: "abc", type: "abc"}]}, `+
			`typeFilter: {types: ["abc"]}, `+
			`addressFilter: {sender: "abc", receiver: "abc", direction: UNION}`+
			`) { page { cursor next total } } }`,
		doc)
}

func TestSampleValuesScalars(t *testing.T) {
	values := SampleValues(querySpecs(t, "listBlocks"))
	since, _ := values.Get("since")
	limit, _ := values.Get("limit")
	require.Equal(t, SampleString, since)
	require.Equal(t, SampleFloat, limit)

	tx := SampleValues(mutationSpecs(t, "sendTx"))
	doc, err := FormatArgs(tx, mutationSpecs(t, "sendTx"))
	require.NoError(t, err)
	require.Equal(t, `tx: {from: "abc", nonce: 123, data: {type: TRANSFER, value: "abc"}}`, doc)
}
