package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names, all under the matching.* namespace so a single InstrumentedBook
// reads as one coherent trace regardless of which operation ran.
const (
	SpanAddOrder    = "matching.add_order"
	SpanCancelOrder = "matching.cancel_order"
	SpanModifyOrder = "matching.modify_order"
	SpanPublishFill = "matching.publish_fill"
)

// Attribute keys attached to matching spans.
const (
	AttributeOrderID           = "order.id"
	AttributeOrderSide         = "order.side"
	AttributeOrderPrice        = "order.price"
	AttributeOrderQuantity     = "order.quantity"
	AttributeFillCount         = "order.fill_count"
	AttributeRemainingQuantity = "order.remaining_quantity"
)

// StartSpan starts a span under the package tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}
