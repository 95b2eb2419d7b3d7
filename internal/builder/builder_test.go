package builder

import (
	"errors"
	"strings"
	"sync"
	"testing"

	schema "github.com/hanpama/opgen/internal/schema"
	"github.com/stretchr/testify/require"
)

const chainSDL = `
scalar DateTime

type Query {
  accountByAddress(address: String!, height: Int): Account
  blockByHeight(height: Int!): Block
  listBlocks(paging: PageInput, since: DateTime, limit: Float): BlockPage
  listTransactions(paging: PageInput, typeFilter: TypeFilter, addressFilter: AddressFilter): TransactionPage
  chainId: String!
  search(keyword: String!): [SearchResult!]
}

type Mutation {
  createWallet(moniker: String!, passphrase: String!): Wallet!
  sendTx(tx: TxInput!): String
}

type Subscription {
  newBlockMined: Block
}

union SearchResult = Block | Transaction

input PageInput {
  cursor: String
  size: Int
  order: [PageOrder!]
}

input PageOrder {
  field: String
  type: String
}

input TypeFilter {
  types: [String!]
}

input AddressFilter {
  sender: String
  receiver: String
  direction: Direction
}

enum Direction {
  UNION
  ONE_WAY
  MUTUAL
}

input TxInput {
  from: String!
  nonce: Int!
  data: TxData
}

input TxData {
  type: TxType!
  value: String
}

enum TxType {
  TRANSFER
  EXCHANGE
}

type Account {
  address: String!
  balance: Int
  txs: [Transaction!]
}

type Block {
  hash: String!
  height: Int!
  time: DateTime
  txs: [Transaction!]
  proposer: Account
}

type Transaction {
  hash: String!
  height: Int!
  type: TxType!
  sender: String
  receiver: String
  block: Block
  parent: Transaction
}

type Page {
  cursor: String
  next: Boolean
  total: Int
}

type BlockPage {
  page: Page
  blocks: [Block!]
}

type TransactionPage {
  page: Page
  transactions: [Transaction!]
}

type Wallet {
  address: String!
  pk: String
  sk: String
}
`

var (
	chainOnce   sync.Once
	chainSchema *schema.Schema
	chainErr    error
)

func loadChainSchema(t *testing.T) *schema.Schema {
	t.Helper()
	chainOnce.Do(func() {
		chainSchema, chainErr = schema.BuildFromSDL("chain.graphql", chainSDL)
	})
	require.NoError(t, chainErr)
	return chainSchema
}

func chainIndex(t *testing.T) TypeIndex {
	t.Helper()
	return NewTypeIndex(loadChainSchema(t).Types)
}

func queryBuilders(t *testing.T, opts ...Option) map[string]*Builder {
	t.Helper()
	builders, err := QueryBuilders(loadChainSchema(t), opts...)
	require.NoError(t, err)
	return builders
}

type printerFunc func(string) (string, error)

func (f printerFunc) Print(doc string) (string, error) { return f(doc) }

func TestBuildersPerRoot(t *testing.T) {
	s := loadChainSchema(t)

	queries, err := QueryBuilders(s)
	require.NoError(t, err)
	require.Len(t, queries, 6)
	require.Contains(t, queries, "listTransactions")
	require.Equal(t, Query, queries["chainId"].Operation)

	mutations, err := MutationBuilders(s)
	require.NoError(t, err)
	require.Len(t, mutations, 2)

	subs, err := SubscriptionBuilders(s)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	doc, err := subs["newBlockMined"].Build(nil, IgnoreFields("txs", "proposer"))
	require.NoError(t, err)
	require.Equal(t, "subscription { newBlockMined { hash height time } }", doc)
}

func TestBuildMissingRoot(t *testing.T) {
	s, err := schema.BuildFromSDL("q.graphql", `type Query { ping: String }`)
	require.NoError(t, err)

	mutations, err := MutationBuilders(s)
	require.NoError(t, err)
	require.Empty(t, mutations)
}

func TestBuildListTransactions(t *testing.T) {
	b := queryBuilders(t)["listTransactions"]
	require.Equal(t, []string{"paging", "typeFilter", "addressFilter"}, b.Args.Names())
	require.Empty(t, b.Args.Required())

	values := Values{{Name: "paging", Value: Values{{Name: "size", Value: 10}}}}
	doc, err := b.Build(values, IgnoreFields("transactions.block", "transactions.parent"))
	require.NoError(t, err)
	require.Equal(t,
		"{ listTransactions(paging: {size: 10}) { page { cursor next total } transactions { hash height type sender receiver } } }",
		doc)

	full, err := b.Build(values)
	require.NoError(t, err)
	for _, path := range b.Paths() {
		if strings.HasPrefix(path, "transactions.block") {
			continue
		}
		name := path[strings.LastIndex(path, ".")+1:]
		require.Contains(t, full, name)
	}
	require.Contains(t, full, "block { hash height time")
}

func TestBuildPaths(t *testing.T) {
	b := queryBuilders(t)["listTransactions"]
	paths := b.Paths()
	require.Contains(t, paths, "page.cursor")
	require.Contains(t, paths, "transactions.parent.parent.parent.hash")
	require.NotContains(t, paths, "transactions.parent.parent.parent.parent")
	require.NotContains(t, paths, "transactions.parent.parent.parent.parent.hash")
}

func TestBuildCreateWalletDeterministic(t *testing.T) {
	mutations, err := MutationBuilders(loadChainSchema(t))
	require.NoError(t, err)
	b := mutations["createWallet"]
	require.Equal(t, []string{"moniker", "passphrase"}, b.Args.Required())

	values := Values{{Name: "moniker", Value: "alice"}, {Name: "passphrase", Value: "secret"}}
	first, err := b.Build(values)
	require.NoError(t, err)
	require.Equal(t, `mutation { createWallet(moniker: "alice", passphrase: "secret") { address pk sk } }`, first)
	for i := 0; i < 10; i++ {
		again, err := b.Build(values)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestBuildConcurrent(t *testing.T) {
	b := queryBuilders(t)["accountByAddress"]
	values := Values{{Name: "address", Value: "xxx"}}
	want, err := b.Build(values)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = b.Build(values)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestBuildArgumentErrors(t *testing.T) {
	b := queryBuilders(t)["accountByAddress"]

	_, err := b.Build(nil)
	require.ErrorIs(t, err, ErrMissingArguments)
	require.ErrorIs(t, err, ErrArgumentValidation)

	_, err = b.Build(Values{})
	var missing *MissingRequiredArgumentError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"address"}, missing.Names)
	require.ErrorIs(t, err, ErrArgumentValidation)
	require.Contains(t, err.Error(), "query accountByAddress")
}

func TestBuildLeafAndUnionRoots(t *testing.T) {
	builders := queryBuilders(t)

	doc, err := builders["chainId"].Build(nil)
	require.NoError(t, err)
	require.Equal(t, "{ chainId }", doc)
	require.Empty(t, builders["chainId"].Paths())

	doc, err = builders["search"].Build(Values{{Name: "keyword", Value: "0xabc"}})
	require.NoError(t, err)
	require.Equal(t, `{ search(keyword: "0xabc") { __typename } }`, doc)
}

func TestBuildIgnoreOptions(t *testing.T) {
	ignore := func(f *schema.Field) []string {
		if f.Name == "accountByAddress" {
			return []string{"txs"}
		}
		return nil
	}
	builders := queryBuilders(t, WithIgnoreFunc(ignore), WithIgnoreFields("balance"))
	values := Values{{Name: "address", Value: "xxx"}}

	doc, err := builders["accountByAddress"].Build(values)
	require.NoError(t, err)
	require.Equal(t, `{ accountByAddress(address: "xxx") { address } }`, doc)

	// per-call exclusions add to the factory's
	_, err = builders["accountByAddress"].Build(values, IgnoreBy(func(*schema.Field) []string {
		return []string{"address"}
	}))
	require.ErrorIs(t, err, ErrEmptySelection)

	doc, err = builders["blockByHeight"].Build(Values{{Name: "height", Value: 7}}, IgnoreFields("txs", "proposer.txs"))
	require.NoError(t, err)
	require.Equal(t, "{ blockByHeight(height: 7) { hash height time proposer { address balance } } }", doc)
}

func TestBuildWithMaxDepth(t *testing.T) {
	b := queryBuilders(t, WithMaxDepth(1))["blockByHeight"]
	doc, err := b.Build(Values{{Name: "height", Value: 1}})
	require.NoError(t, err)
	require.Equal(t,
		"{ blockByHeight(height: 1) { hash height time txs { hash height type sender receiver } proposer { address balance } } }",
		doc)
}

func TestBuildPrinter(t *testing.T) {
	var seen string
	p := printerFunc(func(doc string) (string, error) {
		seen = doc
		return strings.ToUpper(doc), nil
	})
	doc, err := queryBuilders(t, WithPrinter(p))["chainId"].Build(nil)
	require.NoError(t, err)
	require.Equal(t, "{ chainId }", seen)
	require.Equal(t, "{ CHAINID }", doc)

	boom := errors.New("boom")
	failing := printerFunc(func(string) (string, error) { return "", boom })
	_, err = queryBuilders(t, WithPrinter(failing))["chainId"].Build(nil)
	require.ErrorIs(t, err, boom)
}

func TestBuildUnknownType(t *testing.T) {
	s := &schema.Schema{
		QueryType: "Query",
		Types: []*schema.Type{{
			Name: "Query",
			Kind: schema.KindObject,
			Fields: []*schema.Field{
				{Name: "x", Type: schema.NamedType(schema.KindObject, "Missing")},
			},
		}},
	}
	builders, err := QueryBuilders(s)
	require.Nil(t, builders)
	var resolution *SchemaResolutionError
	require.ErrorAs(t, err, &resolution)
	require.Equal(t, "Missing", resolution.TypeName)
	require.Equal(t, "Query.x", resolution.Field)
}

func TestOperation(t *testing.T) {
	for _, tc := range []struct {
		op      Operation
		name    string
		keyword string
	}{
		{Query, "query", ""},
		{Mutation, "mutation", "mutation"},
		{Subscription, "subscription", "subscription"},
	} {
		require.Equal(t, tc.name, tc.op.String())
		require.Equal(t, tc.keyword, tc.op.Keyword())
		parsed, err := ParseOperation(tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.op, parsed)
	}
	_, err := ParseOperation("fragment")
	require.Error(t, err)
}

func TestDigest(t *testing.T) {
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Digest(""))
	require.Equal(t, Digest("{ chainId }"), Digest("{ chainId }"))
	require.NotEqual(t, Digest("{ chainId }"), Digest("{ chainId  }"))
}
