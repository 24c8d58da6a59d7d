package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orba/jobtracker/internal/board/identity"
)

const tracerName = "github.com/orba/jobtracker/internal/board/engine"

// startDispatchSpan opens a client span for a background write to the record
// store. Spans are no-ops unless a tracer provider is registered.
func startDispatchSpan(ctx context.Context, op Op, scope identity.Scope, recordID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "board.dispatch."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("board.op", string(op)),
			attribute.String("board.record_id", recordID),
			attribute.String("board.scope", scope.Key()),
		))
}

// endDispatchSpan records the dispatch outcome and closes the span.
func endDispatchSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

// startStoreSpan opens a client span for a synchronous store call such as
// create or hydrate.
func startStoreSpan(ctx context.Context, name string, scope identity.Scope) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("board.scope", scope.Key())))
}
