// Package client pairs generated operation builders with a transport, so an
// operation can be called by name with argument values.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	builder "github.com/hanpama/opgen/internal/builder"
	eventbus "github.com/hanpama/opgen/internal/eventbus"
	events "github.com/hanpama/opgen/internal/events"
	reqid "github.com/hanpama/opgen/internal/reqid"
	schema "github.com/hanpama/opgen/internal/schema"
	transport "github.com/hanpama/opgen/internal/transport"
)

var (
	// ErrUnknownOperation is returned for names the schema does not declare.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNoSubscriber is returned by Subscribe when no Subscriber is set.
	ErrNoSubscriber = errors.New("no subscription transport configured")
)

// Transport executes queries and mutations.
type Transport interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Subscriber executes subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, req transport.Request) (<-chan *transport.Response, error)
}

type Client struct {
	builders   map[builder.Operation]map[string]*builder.Builder
	transport  Transport
	subscriber Subscriber
}

type Option func(*options)

type options struct {
	subscriber Subscriber
	builder    []builder.Option
}

// WithSubscriber enables Subscribe.
func WithSubscriber(s Subscriber) Option { return func(o *options) { o.subscriber = s } }

// WithBuilderOptions configures every generated builder.
func WithBuilderOptions(opts ...builder.Option) Option {
	return func(o *options) { o.builder = append(o.builder, opts...) }
}

// New generates builders for every root of s.
func New(s *schema.Schema, t Transport, opts ...Option) (*Client, error) {
	var o options
	for _, f := range opts {
		f(&o)
	}
	c := &Client{
		builders:   make(map[builder.Operation]map[string]*builder.Builder, 3),
		transport:  t,
		subscriber: o.subscriber,
	}
	for _, op := range []builder.Operation{builder.Query, builder.Mutation, builder.Subscription} {
		bs, err := builder.Build(s, op, o.builder...)
		if err != nil {
			return nil, err
		}
		c.builders[op] = bs
	}
	return c, nil
}

// Queries lists query names, sorted.
func (c *Client) Queries() []string { return c.names(builder.Query) }

// Mutations lists mutation names, sorted.
func (c *Client) Mutations() []string { return c.names(builder.Mutation) }

// Subscriptions lists subscription names, sorted.
func (c *Client) Subscriptions() []string { return c.names(builder.Subscription) }

func (c *Client) names(op builder.Operation) []string {
	names := make([]string, 0, len(c.builders[op]))
	for name := range c.builders[op] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder returns the builder for a root field.
func (c *Client) Builder(op builder.Operation, name string) (*builder.Builder, error) {
	b, ok := c.builders[op][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownOperation, op, name)
	}
	return b, nil
}

// Query runs a query.
func (c *Client) Query(ctx context.Context, name string, values builder.Values, opts ...builder.BuildOption) (*transport.Response, error) {
	return c.Do(ctx, builder.Query, name, values, opts...)
}

// Mutate runs a mutation.
func (c *Client) Mutate(ctx context.Context, name string, values builder.Values, opts ...builder.BuildOption) (*transport.Response, error) {
	return c.Do(ctx, builder.Mutation, name, values, opts...)
}

// Do builds and sends a query or mutation. When the server answers with
// GraphQL errors the response is returned together with them.
func (c *Client) Do(ctx context.Context, op builder.Operation, name string, values builder.Values, opts ...builder.BuildOption) (*transport.Response, error) {
	if op == builder.Subscription {
		return nil, fmt.Errorf("%s %s: use Subscribe", op, name)
	}
	b, err := c.Builder(op, name)
	if err != nil {
		return nil, err
	}

	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Operation: op.String(), Field: name})
	doc, res, err := c.do(ctx, b, values, opts)
	finish := events.OperationFinish{Operation: op.String(), Field: name, Document: doc, Duration: time.Since(start)}
	if err != nil {
		finish.Errors = []error{err}
	}
	eventbus.Publish(ctx, finish)
	return res, err
}

func (c *Client) do(ctx context.Context, b *builder.Builder, values builder.Values, opts []builder.BuildOption) (string, *transport.Response, error) {
	doc, err := b.Build(values, opts...)
	if err != nil {
		return "", nil, err
	}
	res, err := c.transport.Do(ctx, transport.Request{Query: doc})
	if err != nil {
		return doc, nil, fmt.Errorf("%s %s: %w", b.Operation, b.Name, err)
	}
	if err := res.Err(); err != nil {
		return doc, res, err
	}
	return doc, res, nil
}

// Subscribe builds a subscription and opens it.
func (c *Client) Subscribe(ctx context.Context, name string, values builder.Values, opts ...builder.BuildOption) (<-chan *transport.Response, error) {
	if c.subscriber == nil {
		return nil, ErrNoSubscriber
	}
	b, err := c.Builder(builder.Subscription, name)
	if err != nil {
		return nil, err
	}

	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Operation: builder.Subscription.String(), Field: name})
	doc, err := b.Build(values, opts...)
	var ch <-chan *transport.Response
	if err == nil {
		ch, err = c.subscriber.Subscribe(ctx, transport.Request{Query: doc})
	}
	finish := events.OperationFinish{Operation: builder.Subscription.String(), Field: name, Document: doc, Duration: time.Since(start)}
	if err != nil {
		finish.Errors = []error{err}
	}
	eventbus.Publish(ctx, finish)
	return ch, err
}
