package instrumentation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ashgrove-systems/ticklob/pkg/core"
	"github.com/ashgrove-systems/ticklob/pkg/logging"
	"github.com/ashgrove-systems/ticklob/pkg/messaging"
)

// InstrumentedBook wraps a *core.OrderBook with logging, tracing, metrics,
// fill-event publication, and a mutex. core.OrderBook assumes a single
// caller goroutine; this is the layer that makes it safe to share one book
// across multiple callers, and the only layer that knows about zerolog,
// OpenTelemetry, or messaging.Sender.
type InstrumentedBook struct {
	mu     sync.Mutex
	id     string
	book   *core.OrderBook
	sender messaging.Sender
	seq    atomic.Uint64
}

// NewInstrumentedBook wraps a fresh core.OrderBook. id identifies the book
// in logs, spans, and published fill events; sender receives every fill the
// book produces. A nil sender is replaced with messaging.NoopSender.
func NewInstrumentedBook(id string, sender messaging.Sender) *InstrumentedBook {
	if sender == nil {
		sender = messaging.NoopSender{}
	}
	return &InstrumentedBook{
		id:     id,
		book:   core.NewOrderBook(),
		sender: sender,
	}
}

// AddOrder submits a new order, publishing any resulting fills and
// recording latency, fill count, and live-order-count metrics.
func (b *InstrumentedBook) AddOrder(ctx context.Context, price core.Price, quantity core.Quantity, side core.Side) (core.AddResult, error) {
	ctx, span := StartSpan(ctx, SpanAddOrder,
		attribute.String(AttributeOrderSide, side.String()),
		attribute.Int64(AttributeOrderPrice, int64(price)),
		attribute.Int64(AttributeOrderQuantity, int64(quantity)),
	)
	defer span.End()

	logger := logging.FromContext(ctx)
	start := time.Now()
	metrics := GetEngineMetrics()

	b.mu.Lock()
	before := b.book.TotalOrders()
	result, err := b.book.AddOrder(price, quantity, side)
	liveDelta := b.book.TotalOrders() - before
	b.mu.Unlock()

	metrics.RecordOperation(ctx, SpanAddOrder, time.Since(start))

	if err != nil {
		metrics.RecordRejected(ctx, SpanAddOrder)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug().Err(err).Str("book", b.id).Msg("add order rejected")
		return result, err
	}

	span.SetAttributes(
		attribute.Int64(AttributeOrderID, int64(result.OrderID)),
		attribute.Int(AttributeFillCount, len(result.Fills)),
		attribute.Int64(AttributeRemainingQuantity, int64(result.RemainingQuantity)),
	)

	metrics.RecordFills(ctx, int64(len(result.Fills)))
	// A partial fill leaves its resting order in the book, so the live
	// count moves by the change in resting orders, not by the fill count.
	metrics.AdjustLiveOrders(ctx, int64(liveDelta))
	for _, f := range result.Fills {
		b.publish(ctx, f)
	}

	logger.Debug().
		Str("book", b.id).
		Uint64("order_id", uint64(result.OrderID)).
		Int("fills", len(result.Fills)).
		Uint64("remaining", uint64(result.RemainingQuantity)).
		Msg("order added")

	return result, nil
}

// CancelOrder removes a resting order, reporting false if it was already
// gone.
func (b *InstrumentedBook) CancelOrder(ctx context.Context, id core.OrderID) bool {
	ctx, span := StartSpan(ctx, SpanCancelOrder, attribute.Int64(AttributeOrderID, int64(id)))
	defer span.End()

	start := time.Now()
	metrics := GetEngineMetrics()

	b.mu.Lock()
	ok := b.book.CancelOrder(id)
	b.mu.Unlock()

	metrics.RecordOperation(ctx, SpanCancelOrder, time.Since(start))
	if ok {
		metrics.AdjustLiveOrders(ctx, -1)
	} else {
		metrics.RecordRejected(ctx, SpanCancelOrder)
	}

	span.SetAttributes(attribute.Bool("order.found", ok))
	logger := logging.FromContext(ctx)
	logger.Debug().Str("book", b.id).Uint64("order_id", uint64(id)).Bool("found", ok).Msg("order cancelled")

	return ok
}

// ModifyOrder overwrites a resting order's quantity, reporting false if the
// id is unknown.
func (b *InstrumentedBook) ModifyOrder(ctx context.Context, id core.OrderID, newQuantity core.Quantity) bool {
	ctx, span := StartSpan(ctx, SpanModifyOrder,
		attribute.Int64(AttributeOrderID, int64(id)),
		attribute.Int64(AttributeOrderQuantity, int64(newQuantity)),
	)
	defer span.End()

	start := time.Now()
	metrics := GetEngineMetrics()

	b.mu.Lock()
	ok := b.book.ModifyOrder(id, newQuantity)
	b.mu.Unlock()

	metrics.RecordOperation(ctx, SpanModifyOrder, time.Since(start))
	if !ok {
		metrics.RecordRejected(ctx, SpanModifyOrder)
	} else if newQuantity == 0 {
		metrics.AdjustLiveOrders(ctx, -1)
	}

	span.SetAttributes(attribute.Bool("order.found", ok))
	logger := logging.FromContext(ctx)
	logger.Debug().Str("book", b.id).Uint64("order_id", uint64(id)).Bool("found", ok).Msg("order modified")

	return ok
}

// BestBid, BestAsk, Spread, MidPrice, BidQuantityAtTop, AskQuantityAtTop,
// BidLevels, AskLevels, and TotalOrders pass straight through under the
// mutex: they're cheap, read-only, and not worth a span of their own.

func (b *InstrumentedBook) BestBid() (core.Price, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.BestBid()
}

func (b *InstrumentedBook) BestAsk() (core.Price, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.BestAsk()
}

func (b *InstrumentedBook) Spread() (core.Price, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.Spread()
}

func (b *InstrumentedBook) MidPrice() (core.Price, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.MidPrice()
}

func (b *InstrumentedBook) BidQuantityAtTop() core.Quantity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.BidQuantityAtTop()
}

func (b *InstrumentedBook) AskQuantityAtTop() core.Quantity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.AskQuantityAtTop()
}

func (b *InstrumentedBook) BidLevels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.BidLevels()
}

func (b *InstrumentedBook) AskLevels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.AskLevels()
}

func (b *InstrumentedBook) TotalOrders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.TotalOrders()
}

// Snapshot returns the top depth levels per side.
func (b *InstrumentedBook) Snapshot(depth int) core.BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book.Snapshot(depth)
}

// Close releases the book's fill-event sender.
func (b *InstrumentedBook) Close() error {
	return b.sender.Close()
}

func (b *InstrumentedBook) publish(ctx context.Context, f core.Fill) {
	ctx, span := StartSpan(ctx, SpanPublishFill)
	defer span.End()

	seq := b.seq.Add(1)
	if err := b.sender.Send(ctx, messaging.FromFill(b.id, seq, f)); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Str("book", b.id).Msg("failed to enqueue fill event")
	}
}
