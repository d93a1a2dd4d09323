package core

// priceLevel is the aggregate of all resting orders at one exact price on
// one side. Its queue is a doubly linked list of orders in FIFO (time
// priority) order; head is the next order to trade at this price.
//
// priceLevel also carries its own prev/next pointers so that a side's
// ladder (see ladder.go) can keep price levels in a sorted doubly linked
// list without a second container.
type priceLevel struct {
	price  Price
	volume Quantity
	count  int

	head, tail *order

	prevLevel, nextLevel *priceLevel
}

func newPriceLevel(price Price) *priceLevel {
	return &priceLevel{price: price}
}

// pushBack links o at the tail of the queue and updates aggregates.
func (l *priceLevel) pushBack(o *order) {
	o.level = l
	o.prev = l.tail
	o.next = nil

	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o

	l.volume += o.remaining
	l.count++
}

// unlink splices o out of the queue by its own prev/next pointers, with no
// search. It is the primitive that makes cancel O(1).
func (l *priceLevel) unlink(o *order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}

	l.adjustVolume(-Price(o.remaining))
	l.count--

	o.prev, o.next, o.level = nil, nil, nil
}

// popFront unlinks and returns the head order, or nil if the level is
// empty.
func (l *priceLevel) popFront() *order {
	head := l.head
	if head == nil {
		return nil
	}
	l.unlink(head)
	return head
}

// adjustVolume adds a signed delta to the aggregate volume, saturating at
// zero. Under the engine's invariants this never actually has to saturate;
// the clamp is a defensive backstop against float-free integer bugs.
func (l *priceLevel) adjustVolume(delta Price) {
	signed := Price(l.volume) + delta
	if signed < 0 {
		signed = 0
	}
	l.volume = Quantity(signed)
}

func (l *priceLevel) isEmpty() bool {
	return l.count == 0
}

func (l *priceLevel) front() *order {
	return l.head
}
