package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	builder "github.com/hanpama/opgen/internal/builder"
	eventbus "github.com/hanpama/opgen/internal/eventbus"
	events "github.com/hanpama/opgen/internal/events"
	schema "github.com/hanpama/opgen/internal/schema"
	transport "github.com/hanpama/opgen/internal/transport"
)

const blocksSDL = `
type Query {
  blockByHeight(height: Int!): Block
  chainId: String
}
type Mutation {
  createWallet(moniker: String!): Wallet
}
type Subscription {
  newBlockMined: Block
}
type Block { hash: String height: Int }
type Wallet { address: String }
`

type recorder struct {
	docs []string
	res  *transport.Response
	err  error
}

func (r *recorder) Do(_ context.Context, req transport.Request) (*transport.Response, error) {
	r.docs = append(r.docs, req.Query)
	return r.res, r.err
}

func (r *recorder) Subscribe(_ context.Context, req transport.Request) (<-chan *transport.Response, error) {
	r.docs = append(r.docs, req.Query)
	ch := make(chan *transport.Response, 1)
	ch <- r.res
	close(ch)
	return ch, r.err
}

func newClient(t *testing.T, r *recorder, opts ...Option) *Client {
	t.Helper()
	s, err := schema.BuildFromSDL("blocks.graphql", blocksSDL)
	require.NoError(t, err)
	c, err := New(s, r, opts...)
	require.NoError(t, err)
	return c
}

func TestListings(t *testing.T) {
	c := newClient(t, &recorder{})
	require.Equal(t, []string{"blockByHeight", "chainId"}, c.Queries())
	require.Equal(t, []string{"createWallet"}, c.Mutations())
	require.Equal(t, []string{"newBlockMined"}, c.Subscriptions())

	_, err := c.Builder(builder.Query, "nope")
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestQuery(t *testing.T) {
	r := &recorder{res: &transport.Response{Data: json.RawMessage(`{"blockByHeight":{"hash":"h"}}`)}}
	c := newClient(t, r)

	res, err := c.Query(context.Background(), "blockByHeight", builder.Values{{Name: "height", Value: 3}}, builder.IgnoreFields("height"))
	require.NoError(t, err)
	require.JSONEq(t, `{"blockByHeight":{"hash":"h"}}`, string(res.Data))
	require.Equal(t, []string{"{ blockByHeight(height: 3) { hash } }"}, r.docs)

	_, err = c.Query(context.Background(), "blockByHeight", builder.Values{})
	require.ErrorIs(t, err, builder.ErrArgumentValidation)
	require.Len(t, r.docs, 1, "invalid arguments never reach the transport")

	_, err = c.Do(context.Background(), builder.Subscription, "newBlockMined", nil)
	require.Error(t, err)
}

func TestMutateErrors(t *testing.T) {
	r := &recorder{res: &transport.Response{Errors: gqlerror.List{gqlerror.Errorf("moniker taken")}}}
	c := newClient(t, r, WithBuilderOptions(builder.WithMaxDepth(1)))

	res, err := c.Mutate(context.Background(), "createWallet", builder.Values{{Name: "moniker", Value: "alice"}})
	require.ErrorContains(t, err, "moniker taken")
	require.NotNil(t, res)
	require.Equal(t, `mutation { createWallet(moniker: "alice") { address } }`, r.docs[0])

	down := errors.New("down")
	r.err, r.res = down, nil
	_, err = c.Mutate(context.Background(), "createWallet", builder.Values{{Name: "moniker", Value: "alice"}})
	require.ErrorIs(t, err, down)
}

func TestSubscribe(t *testing.T) {
	r := &recorder{res: &transport.Response{Data: json.RawMessage(`{"newBlockMined":{"height":1}}`)}}

	_, err := newClient(t, r).Subscribe(context.Background(), "newBlockMined", nil)
	require.ErrorIs(t, err, ErrNoSubscriber)

	c := newClient(t, r, WithSubscriber(r))
	ch, err := c.Subscribe(context.Background(), "newBlockMined", nil)
	require.NoError(t, err)
	var got []*transport.Response
	for res := range ch {
		got = append(got, res)
	}
	require.Len(t, got, 1)
	require.Equal(t, "subscription { newBlockMined { hash height } }", r.docs[0])
}

func TestOperationEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var started []string
	var finished []events.OperationFinish
	eventbus.Subscribe(func(_ context.Context, e events.OperationStart) { started = append(started, e.Field) })
	eventbus.Subscribe(func(_ context.Context, e events.OperationFinish) { finished = append(finished, e) })

	c := newClient(t, &recorder{res: &transport.Response{}})
	_, err := c.Query(context.Background(), "chainId", nil)
	require.NoError(t, err)
	_, err = c.Query(context.Background(), "blockByHeight", nil)
	require.Error(t, err)

	require.Equal(t, []string{"chainId", "blockByHeight"}, started)
	require.Len(t, finished, 2)
	require.Equal(t, "{ chainId }", finished[0].Document)
	require.Empty(t, finished[0].Errors)
	require.Len(t, finished[1].Errors, 1)
}
