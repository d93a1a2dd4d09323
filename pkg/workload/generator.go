// Package workload generates synthetic order flow for exercising an order
// book: a seeded random walk around a mid price, mixed with cancels and
// modifies against orders the caller reports as still resting. Everything
// is deterministic given the same seed, so a recorded run can be replayed.
package workload

import (
	"math/rand"

	"github.com/ashgrove-systems/ticklob/pkg/core"
)

// OpKind identifies which OrderBook call an Op maps to.
type OpKind int

// Op kinds.
const (
	OpAdd OpKind = iota
	OpCancel
	OpModify
)

// Op is one generated instruction. TargetOrderID is only meaningful for
// OpCancel and OpModify.
type Op struct {
	Kind          OpKind
	Side          core.Side
	Price         core.Price
	Quantity      core.Quantity
	TargetOrderID core.OrderID
}

// Weights controls the relative frequency of each op kind. A generated
// cancel or modify degrades to OpAdd if there are no tracked resting
// orders to target.
type Weights struct {
	Add    float64
	Cancel float64
	Modify float64
}

// DefaultWeights favors new orders over churn, which keeps the book
// growing instead of flatlining near empty.
func DefaultWeights() Weights {
	return Weights{Add: 0.7, Cancel: 0.2, Modify: 0.1}
}

// Generator produces a random order-flow stream around a mid-price random
// walk. It is not safe for concurrent use.
type Generator struct {
	rnd      *rand.Rand
	weights  Weights
	mid      core.Price
	tick     core.Price
	maxQty   core.Quantity
	maxBandT int64 // exclusive bound on how many ticks from mid a new order is priced

	open []core.OrderID
}

// NewGenerator seeds a Generator deterministically. startMid and tick are
// both in price ticks; tick must be positive.
func NewGenerator(seed int64, startMid, tick core.Price) *Generator {
	if tick <= 0 {
		tick = 1
	}
	return &Generator{
		rnd:      rand.New(rand.NewSource(seed)),
		weights:  DefaultWeights(),
		mid:      startMid,
		tick:     tick,
		maxQty:   100,
		maxBandT: 20,
	}
}

// WithWeights overrides the op-kind mix.
func (g *Generator) WithWeights(w Weights) *Generator {
	g.weights = w
	return g
}

// Track records an order id as resting so a later Cancel/Modify can target
// it. Callers should call this after an AddOrder leaves a residue.
func (g *Generator) Track(id core.OrderID) {
	g.open = append(g.open, id)
}

// Untrack removes an order id, e.g. after it fully fills or is cancelled.
func (g *Generator) Untrack(id core.OrderID) {
	for i, existing := range g.open {
		if existing == id {
			g.open[i] = g.open[len(g.open)-1]
			g.open = g.open[:len(g.open)-1]
			return
		}
	}
}

// Next produces the next Op in the stream.
func (g *Generator) Next() Op {
	g.walkMid()

	switch g.pickKind() {
	case OpCancel:
		if id, ok := g.pickOpen(); ok {
			return Op{Kind: OpCancel, TargetOrderID: id}
		}
	case OpModify:
		if id, ok := g.pickOpen(); ok {
			return Op{Kind: OpModify, TargetOrderID: id, Quantity: g.randQuantity()}
		}
	}

	return g.nextAdd()
}

func (g *Generator) walkMid() {
	switch g.rnd.Intn(3) {
	case 0:
		g.mid += g.tick
	case 1:
		if g.mid > g.tick {
			g.mid -= g.tick
		}
	}
}

func (g *Generator) pickKind() OpKind {
	roll := g.rnd.Float64() * (g.weights.Add + g.weights.Cancel + g.weights.Modify)
	switch {
	case roll < g.weights.Add:
		return OpAdd
	case roll < g.weights.Add+g.weights.Cancel:
		return OpCancel
	default:
		return OpModify
	}
}

func (g *Generator) pickOpen() (core.OrderID, bool) {
	if len(g.open) == 0 {
		return 0, false
	}
	return g.open[g.rnd.Intn(len(g.open))], true
}

func (g *Generator) nextAdd() Op {
	side := core.Buy
	if g.rnd.Float64() < 0.5 {
		side = core.Sell
	}

	offset := core.Price(g.rnd.Int63n(g.maxBandT)) * g.tick
	price := g.mid - offset
	if side == core.Sell {
		price = g.mid + offset
	}
	if price < g.tick {
		price = g.tick
	}

	return Op{Kind: OpAdd, Side: side, Price: price, Quantity: g.randQuantity()}
}

func (g *Generator) randQuantity() core.Quantity {
	return core.Quantity(g.rnd.Int63n(int64(g.maxQty)) + 1)
}
