// Package messaging publishes fill events produced by the matching engine
// to an external sink. Publication is always fire-and-forget from the
// caller's perspective: a Sender must never block the matching path, and
// must never propagate a downstream outage back into it.
package messaging

import (
	"context"

	"github.com/ashgrove-systems/ticklob/pkg/core"
)

// Sender publishes fill events asynchronously. Send must return
// immediately; implementations queue the event and publish on their own
// goroutine. A non-nil error only ever reflects the enqueue step (e.g. the
// sender is already closed), never the outcome of the downstream publish.
type Sender interface {
	Send(ctx context.Context, event FillEvent) error
	Close() error
}

// FillEvent is the wire representation of one core.Fill, plus the
// book-level context a downstream consumer needs to make sense of it
// without replaying the book.
type FillEvent struct {
	OrderBookID string `json:"order_book_id"`
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Price       int64  `json:"price"`
	Quantity    uint64 `json:"quantity"`
	SequenceNo  uint64 `json:"sequence_no"`
}

// FromFill converts a core.Fill into a FillEvent tagged with the book it
// came from and a publish-order sequence number.
func FromFill(orderBookID string, seq uint64, f core.Fill) FillEvent {
	return FillEvent{
		OrderBookID: orderBookID,
		BuyOrderID:  uint64(f.BuyOrderID),
		SellOrderID: uint64(f.SellOrderID),
		Price:       int64(f.Price),
		Quantity:    uint64(f.Quantity),
		SequenceNo:  seq,
	}
}

// NoopSender discards every event. It is the default Sender so that
// pkg/instrumentation never requires a live broker to function.
type NoopSender struct{}

// Send implements Sender.
func (NoopSender) Send(context.Context, FillEvent) error { return nil }

// Close implements Sender.
func (NoopSender) Close() error { return nil }
