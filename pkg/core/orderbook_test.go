package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrder_RejectsZeroQuantity(t *testing.T) {
	book := NewOrderBook()

	_, err := book.AddOrder(100, 0, Buy)

	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, book.TotalOrders())
}

// S1: a marketable buy consumes the best ask and rests nothing.
func TestScenario_S1_SingleLevelFill(t *testing.T) {
	book := NewOrderBook()

	_, err := book.AddOrder(10100, 100, Sell)
	require.NoError(t, err)
	_, err = book.AddOrder(10200, 100, Sell)
	require.NoError(t, err)

	res, err := book.AddOrder(10100, 50, Buy)
	require.NoError(t, err)

	require.Len(t, res.Fills, 1)
	assert.Equal(t, Fill{BuyOrderID: res.OrderID, SellOrderID: 1, Price: 10100, Quantity: 50}, res.Fills[0])
	assert.Equal(t, Quantity(0), res.RemainingQuantity)

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, Price(10100), ask)
	assert.Equal(t, Quantity(50), book.AskQuantityAtTop())
}

// S2: a marketable buy walks three ask levels.
func TestScenario_S2_WalksMultipleLevels(t *testing.T) {
	book := NewOrderBook()

	mustAdd(t, book, 10100, 50, Sell)
	mustAdd(t, book, 10200, 50, Sell)
	mustAdd(t, book, 10300, 50, Sell)

	res, err := book.AddOrder(10300, 120, Buy)
	require.NoError(t, err)

	require.Len(t, res.Fills, 3)
	assert.Equal(t, Price(10100), res.Fills[0].Price)
	assert.Equal(t, Quantity(50), res.Fills[0].Quantity)
	assert.Equal(t, Price(10200), res.Fills[1].Price)
	assert.Equal(t, Quantity(50), res.Fills[1].Quantity)
	assert.Equal(t, Price(10300), res.Fills[2].Price)
	assert.Equal(t, Quantity(20), res.Fills[2].Quantity)
	assert.Equal(t, Quantity(0), res.RemainingQuantity)

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, Price(10300), ask)
	assert.Equal(t, Quantity(30), book.AskQuantityAtTop())
}

// S3: FIFO within a level — the earlier resting order fills first.
func TestScenario_S3_FIFOWithinLevel(t *testing.T) {
	book := NewOrderBook()

	resA, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)
	resB, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)

	res, err := book.AddOrder(10000, 30, Sell)
	require.NoError(t, err)

	require.Len(t, res.Fills, 1)
	assert.Equal(t, resA.OrderID, res.Fills[0].BuyOrderID)
	assert.Equal(t, Quantity(30), res.Fills[0].Quantity)

	assert.Equal(t, Quantity(70), book.BidQuantityAtTop())

	// B is wholly untouched; confirm by cancelling and checking the level
	// volume drops by exactly B's full size.
	require.True(t, book.CancelOrder(resB.OrderID))
	assert.Equal(t, Quantity(20), book.BidQuantityAtTop())
}

// S4: price priority beats time priority across levels.
func TestScenario_S4_PricePriorityBeatsTime(t *testing.T) {
	book := NewOrderBook()

	mustAdd(t, book, 9900, 50, Buy)
	mustAdd(t, book, 10000, 50, Buy)
	mustAdd(t, book, 9800, 50, Buy)

	res, err := book.AddOrder(9800, 30, Sell)
	require.NoError(t, err)

	require.Len(t, res.Fills, 1)
	assert.Equal(t, Price(10000), res.Fills[0].Price)
	assert.Equal(t, Quantity(30), res.Fills[0].Quantity)

	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, Price(10000), bid)
	assert.Equal(t, Quantity(20), book.BidQuantityAtTop())
}

// S5: no overlap, both orders rest.
func TestScenario_S5_BothRestNoFill(t *testing.T) {
	book := NewOrderBook()

	mustAdd(t, book, 10000, 50, Buy)
	mustAdd(t, book, 10100, 50, Sell)

	assert.Equal(t, 2, book.TotalOrders())
	spread, ok := book.Spread()
	require.True(t, ok)
	assert.Equal(t, Price(100), spread)
}

// S6: cancel is idempotent.
func TestScenario_S6_CancelIdempotent(t *testing.T) {
	book := NewOrderBook()

	res, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)

	assert.True(t, book.CancelOrder(res.OrderID))
	assert.Equal(t, 0, book.BidLevels())
	assert.Equal(t, 0, book.TotalOrders())

	assert.False(t, book.CancelOrder(res.OrderID))
}

func TestCancelOrder_UnknownID(t *testing.T) {
	book := NewOrderBook()
	assert.False(t, book.CancelOrder(999))
}

func TestModifyOrder_PreservesQueuePosition(t *testing.T) {
	book := NewOrderBook()

	resA, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)
	resB, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)

	require.True(t, book.ModifyOrder(resA.OrderID, 10))
	assert.Equal(t, Quantity(60), book.BidQuantityAtTop())

	// A shrank but kept its place at the front of the queue: a 15-unit
	// marketable sell should still match A first, for A's new size, then
	// spill into B.
	res, err := book.AddOrder(10000, 15, Sell)
	require.NoError(t, err)

	require.Len(t, res.Fills, 2)
	assert.Equal(t, resA.OrderID, res.Fills[0].BuyOrderID)
	assert.Equal(t, Quantity(10), res.Fills[0].Quantity)
	assert.Equal(t, resB.OrderID, res.Fills[1].BuyOrderID)
	assert.Equal(t, Quantity(5), res.Fills[1].Quantity)
}

func TestModifyOrder_ZeroQuantityCancels(t *testing.T) {
	book := NewOrderBook()

	res, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)

	assert.True(t, book.ModifyOrder(res.OrderID, 0))
	assert.Equal(t, 0, book.TotalOrders())
}

func TestModifyOrder_UnknownID(t *testing.T) {
	book := NewOrderBook()
	assert.False(t, book.ModifyOrder(999, 10))
}

func TestAddOrder_FullyFilledOrderNotResting(t *testing.T) {
	book := NewOrderBook()

	mustAdd(t, book, 10000, 50, Sell)

	res, err := book.AddOrder(10000, 50, Buy)
	require.NoError(t, err)
	assert.Equal(t, Quantity(0), res.RemainingQuantity)

	// A fully-filled order is never resolvable afterward.
	assert.False(t, book.CancelOrder(res.OrderID))
	assert.Equal(t, 0, book.TotalOrders())
}

func TestSnapshot_OrderingAndDepth(t *testing.T) {
	book := NewOrderBook()

	mustAdd(t, book, 10000, 10, Buy)
	mustAdd(t, book, 9900, 10, Buy)
	mustAdd(t, book, 9800, 10, Buy)
	mustAdd(t, book, 10100, 10, Sell)
	mustAdd(t, book, 10200, 10, Sell)

	snap := book.Snapshot(2)

	require.Len(t, snap.Bids, 2)
	assert.Equal(t, Price(10000), snap.Bids[0].Price)
	assert.Equal(t, Price(9900), snap.Bids[1].Price)

	require.Len(t, snap.Asks, 2)
	assert.Equal(t, Price(10100), snap.Asks[0].Price)
	assert.Equal(t, Price(10200), snap.Asks[1].Price)
}

func TestEmptyBookQueries(t *testing.T) {
	book := NewOrderBook()

	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)
	_, ok = book.Spread()
	assert.False(t, ok)
	_, ok = book.MidPrice()
	assert.False(t, ok)
	assert.Equal(t, Quantity(0), book.BidQuantityAtTop())
	assert.Equal(t, Quantity(0), book.AskQuantityAtTop())
}

func TestMidPrice_TruncatesTowardZero(t *testing.T) {
	book := NewOrderBook()

	mustAdd(t, book, 101, 10, Buy)
	mustAdd(t, book, 102, 10, Sell)

	mid, ok := book.MidPrice()
	require.True(t, ok)
	assert.Equal(t, Price(101), mid)
}

// Property: order ids are strictly increasing and never reused.
func TestOrderIDsAreMonotonic(t *testing.T) {
	book := NewOrderBook()

	var ids []OrderID
	for i := 0; i < 5; i++ {
		res, err := book.AddOrder(Price(100+i), 1, Buy)
		require.NoError(t, err)
		ids = append(ids, res.OrderID)
	}

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}
}

// Property: total_orders equals the sum of level counts across both
// ladders, and book never crosses, across a mixed randomized-by-hand
// sequence of operations.
func TestInvariants_AggregatesAndNoCross(t *testing.T) {
	book := NewOrderBook()

	ops := []struct {
		price Price
		qty   Quantity
		side  Side
	}{
		{10000, 10, Buy},
		{9990, 5, Buy},
		{10010, 8, Sell},
		{10020, 12, Sell},
		{10010, 20, Buy},
		{9980, 7, Buy},
	}

	for _, op := range ops {
		_, err := book.AddOrder(op.price, op.qty, op.side)
		require.NoError(t, err)
		assertAggregatesConsistent(t, book)
	}

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if okBid && okAsk {
		assert.Less(t, bid, ask)
	}
}

func assertAggregatesConsistent(t *testing.T, book *OrderBook) {
	t.Helper()

	totalFromLevels := 0
	for _, l := range []*ladder{book.bids, book.asks} {
		cur := l.bestLevel()
		for cur != nil {
			totalFromLevels += cur.count

			sum := Quantity(0)
			n := 0
			for o := cur.front(); o != nil; o = o.next {
				sum += o.remaining
				n++
			}
			assert.Equal(t, cur.volume, sum, "level %d volume mismatch", cur.price)
			assert.Equal(t, cur.count, n, "level %d count mismatch", cur.price)

			cur = cur.nextLevel
		}
	}
	assert.Equal(t, book.TotalOrders(), totalFromLevels)
}

func mustAdd(t *testing.T, book *OrderBook, price Price, qty Quantity, side Side) AddResult {
	t.Helper()
	res, err := book.AddOrder(price, qty, side)
	require.NoError(t, err)
	return res
}
