package language

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
type Query {
  account(address: String!): Account
  chainId: String
}
type Account {
  address: String!
  balance: Int
}
`

func TestCompact(t *testing.T) {
	require.Equal(t, "query { a(x: 1, y: \"two  spaces\") { b } }",
		Compact("query {\n\ta(x: 1, y: \"two  spaces\") {\n\t\tb\n\t}\n}\n"))
	require.Equal(t, `{ a(s: "q\"  x") }`, Compact(`  { a(s: "q\"  x") }  `))
	require.Equal(t, "", Compact(" \n\t"))
}

func TestPrinter(t *testing.T) {
	doc := `{ account(address: "xxx") { address balance } }`

	parsed, err := ParseQuery(doc)
	require.NoError(t, err)
	require.Len(t, parsed.Operations, 1)
	require.Equal(t, ast.Query, parsed.Operations[0].Operation)

	pretty, err := Printer{}.Print(doc)
	require.NoError(t, err)
	require.Equal(t, Format(parsed), pretty)
	require.Contains(t, pretty, "\n")

	compact, err := Printer{Compact: true}.Print(doc)
	require.NoError(t, err)
	require.NotContains(t, compact, "\n")
	require.Equal(t, Compact(pretty), compact)

	// printing is stable
	again, err := Printer{}.Print(pretty)
	require.NoError(t, err)
	require.Equal(t, pretty, again)

	_, err = Printer{}.Print(`{ account(address: "xxx") { address `)
	require.Error(t, err)
}

func TestSchemaValidator(t *testing.T) {
	s, err := LoadSchema("test.graphql", testSDL)
	require.NoError(t, err)
	v := NewSchemaValidator(s, Printer{Compact: true})

	out, err := v.Print(`{ account(address: "xxx") { address } }`)
	require.NoError(t, err)
	require.Contains(t, out, "account(address:")

	_, err = v.Print(`{ account(address: "xxx") { nickname } }`)
	require.ErrorContains(t, err, "nickname")

	_, err = v.Print(`{ account(address: 12) { address } }`)
	require.Error(t, err)

	_, err = LoadSchema("bad.graphql", `type Query { a: Missing }`)
	require.Error(t, err)
}

func TestParseSchema(t *testing.T) {
	doc, err := ParseSchema("test.graphql", testSDL)
	require.NoError(t, err)
	require.Len(t, doc.Definitions, 2)
}
