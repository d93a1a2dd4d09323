// Package core implements an in-memory limit order book for a single
// instrument: a price-time (FIFO) priority matching engine over integer
// tick prices. The package has no third-party imports and no I/O — every
// public method is synchronous, bounded, and single-threaded. Callers that
// need logging, tracing, metrics, or an event sink around these calls
// should wrap an *OrderBook with pkg/instrumentation rather than extend
// this package.
package core

// OrderBook is a single-instrument matching engine: two price ladders
// (bids, descending; asks, ascending), an identity map from OrderID to the
// resting order, and a monotonic id counter. All mutating methods assume a
// single caller goroutine; there is no internal locking.
type OrderBook struct {
	bids   *ladder
	asks   *ladder
	index  map[OrderID]*order
	nextID OrderID
}

// NewOrderBook returns an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:  newLadder(true),
		asks:  newLadder(false),
		index: make(map[OrderID]*order),
	}
}

// AddOrder admits a new order, matches it against the opposite ladder while
// it remains marketable, and rests any residue on the same-side ladder. The
// returned OrderID is always assigned, even for an order that fills in full
// and never rests, so the caller can correlate it against the Fills.
func (b *OrderBook) AddOrder(price Price, quantity Quantity, side Side) (AddResult, error) {
	if quantity == 0 {
		return AddResult{}, ErrInvalidQuantity
	}
	if side != Buy && side != Sell {
		return AddResult{}, ErrInvalidSide
	}

	b.nextID++
	incoming := &order{
		id:        b.nextID,
		side:      side,
		price:     price,
		original:  quantity,
		remaining: quantity,
	}

	fills := b.match(incoming)

	result := AddResult{
		OrderID:           incoming.id,
		Fills:             fills,
		RemainingQuantity: incoming.remaining,
	}

	if incoming.isRestable() {
		b.restSide(side).getOrCreate(price).pushBack(incoming)
		b.index[incoming.id] = incoming
	}

	return result, nil
}

// CancelOrder removes a resting order. It returns false, with no mutation,
// if the id is unknown, already filled, or already cancelled.
func (b *OrderBook) CancelOrder(id OrderID) bool {
	o, ok := b.index[id]
	if !ok {
		return false
	}

	lvl := o.level
	lvl.unlink(o)
	delete(b.index, id)

	if lvl.isEmpty() {
		b.restSide(o.side).remove(lvl)
	}

	return true
}

// ModifyOrder overwrites a resting order's quantity in place, preserving
// its queue position (time priority is not lost on a size change). A
// new quantity of zero is equivalent to CancelOrder. It returns false if
// the id is unknown.
func (b *OrderBook) ModifyOrder(id OrderID, newQuantity Quantity) bool {
	o, ok := b.index[id]
	if !ok {
		return false
	}

	if newQuantity == 0 {
		return b.CancelOrder(id)
	}

	delta := Price(newQuantity) - Price(o.remaining)
	o.remaining = newQuantity
	o.original = newQuantity
	o.level.adjustVolume(delta)

	return true
}

// BestBid returns the highest resting buy price and whether one exists.
func (b *OrderBook) BestBid() (Price, bool) {
	return bestPrice(b.bids)
}

// BestAsk returns the lowest resting sell price and whether one exists.
func (b *OrderBook) BestAsk() (Price, bool) {
	return bestPrice(b.asks)
}

// Spread returns BestAsk - BestBid, and whether both sides exist.
func (b *OrderBook) Spread() (Price, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask - bid, true
}

// MidPrice returns (BestBid + BestAsk) / 2, truncated toward zero, and
// whether both sides exist.
func (b *OrderBook) MidPrice() (Price, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// BidQuantityAtTop returns the aggregate volume at the best bid, or zero if
// the bid side is empty.
func (b *OrderBook) BidQuantityAtTop() Quantity {
	return quantityAtTop(b.bids)
}

// AskQuantityAtTop returns the aggregate volume at the best ask, or zero if
// the ask side is empty.
func (b *OrderBook) AskQuantityAtTop() Quantity {
	return quantityAtTop(b.asks)
}

// BidLevels returns the number of distinct live bid price levels.
func (b *OrderBook) BidLevels() int {
	return b.bids.levelCount()
}

// AskLevels returns the number of distinct live ask price levels.
func (b *OrderBook) AskLevels() int {
	return b.asks.levelCount()
}

// TotalOrders returns the number of resting orders across both sides.
func (b *OrderBook) TotalOrders() int {
	return len(b.index)
}

// Snapshot returns the best depth levels per side: bids in descending
// price order, asks in ascending price order.
func (b *OrderBook) Snapshot(depth int) BookSnapshot {
	return BookSnapshot{
		Bids: b.bids.topLevels(depth),
		Asks: b.asks.topLevels(depth),
	}
}

// match runs the crossing algorithm for incoming against the opposite
// ladder, consuming resting orders at each level's head while incoming
// remains marketable, and returns the fills produced in execution order.
func (b *OrderBook) match(incoming *order) []Fill {
	opp := b.restSide(oppositeSide(incoming.side))
	var fills []Fill

	for incoming.remaining > 0 {
		lvl := opp.bestLevel()
		if lvl == nil {
			break
		}
		if !marketable(incoming.side, incoming.price, lvl.price) {
			break
		}

		for incoming.remaining > 0 && !lvl.isEmpty() {
			resting := lvl.front()

			qty := incoming.remaining
			if resting.remaining < qty {
				qty = resting.remaining
			}

			fills = append(fills, makeFill(incoming, resting, lvl.price, qty))

			incoming.remaining -= qty
			resting.remaining -= qty
			lvl.adjustVolume(-Price(qty))

			if resting.remaining == 0 {
				lvl.popFront()
				delete(b.index, resting.id)
			}
		}

		if lvl.isEmpty() {
			opp.remove(lvl)
		}
	}

	return fills
}

func makeFill(incoming, resting *order, price Price, qty Quantity) Fill {
	f := Fill{Price: price, Quantity: qty}
	if incoming.side == Buy {
		f.BuyOrderID, f.SellOrderID = incoming.id, resting.id
	} else {
		f.BuyOrderID, f.SellOrderID = resting.id, incoming.id
	}
	return f
}

// marketable reports whether an incoming order at orderPrice may cross
// against a resting level at levelPrice.
func marketable(side Side, orderPrice, levelPrice Price) bool {
	if side == Buy {
		return orderPrice >= levelPrice
	}
	return orderPrice <= levelPrice
}

func oppositeSide(side Side) Side {
	if side == Buy {
		return Sell
	}
	return Buy
}

// restSide returns the ladder an order of the given side rests on (its own
// side, not the opposite one match() uses).
func (b *OrderBook) restSide(side Side) *ladder {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func bestPrice(l *ladder) (Price, bool) {
	lvl := l.bestLevel()
	if lvl == nil {
		return 0, false
	}
	return lvl.price, true
}

func quantityAtTop(l *ladder) Quantity {
	lvl := l.bestLevel()
	if lvl == nil {
		return 0
	}
	return lvl.volume
}
