package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/opgen/internal/eventbus"
	events "github.com/hanpama/opgen/internal/events"
	reqid "github.com/hanpama/opgen/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := newSubscriber(otel.Tracer("opgen"))
	unsubscribe := sub.register()

	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

type subscriber struct {
	tracer    trace.Tracer
	opSpans   sync.Map // rid -> trace.Span
	httpSpans sync.Map // rid -> trace.Span
	wsSpans   sync.Map // subscription id -> trace.Span
}

func newSubscriber(tracer trace.Tracer) *subscriber { return &subscriber{tracer: tracer} }

// parent returns ctx carrying the operation span of rid, if any.
func (s *subscriber) parent(ctx context.Context) context.Context {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.opSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *subscriber) register() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.OperationStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.type", e.Operation),
				attribute.String("graphql.operation.field", e.Field),
			)
			s.opSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.opSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.String("graphql.document", e.Document),
				attribute.Int("graphql.error_count", len(e.Errors)),
			)
			var err error
			if len(e.Errors) > 0 {
				err = e.Errors[0]
			}
			end(span, err)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.RequestStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx), "http.client", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				semconv.HTTPURLKey.String(e.Request.URL.String()),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.RequestFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			if e.Status != 0 {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			}
			end(span, e.Err)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.SubscriptionStart) {
			_, span := s.tracer.Start(s.parent(ctx), "graphql.subscription", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				attribute.String("graphql.subscription.id", e.ID),
				semconv.HTTPURLKey.String(e.URL),
			)
			s.wsSpans.Store(e.ID, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.SubscriptionFinish) {
			v, ok := s.wsSpans.LoadAndDelete(e.ID)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.subscription.messages", e.Messages))
			end(span, e.Err)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
