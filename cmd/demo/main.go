// Command demo runs a synthetic order-flow generator against a single
// instrumented order book and renders the top of the book to the terminal
// as it evolves.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/ashgrove-systems/ticklob/config"
	"github.com/ashgrove-systems/ticklob/pkg/core"
	"github.com/ashgrove-systems/ticklob/pkg/instrumentation"
	"github.com/ashgrove-systems/ticklob/pkg/logging"
	"github.com/ashgrove-systems/ticklob/pkg/messaging"
	"github.com/ashgrove-systems/ticklob/pkg/messaging/kafka"
	"github.com/ashgrove-systems/ticklob/pkg/workload"
)

const (
	renderEvery = 500
	renderHz    = 8
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	shutdownTelemetry, err := instrumentation.Init(instrumentation.Config{
		CollectorEnabled: cfg.Telemetry.CollectorEnabled,
		Endpoint:         cfg.Telemetry.Endpoint,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize telemetry:", err)
		os.Exit(1)
	}
	defer shutdownTelemetry()

	if cfg.Telemetry.CollectorEnabled {
		if err := instrumentation.StartRuntimeMetrics(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to start runtime metrics:", err)
		}
	}

	var sender messaging.Sender = messaging.NoopSender{}
	if cfg.Kafka.Enabled {
		kSender := kafka.NewSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		defer kSender.Close()
		sender = kSender
	}

	book := instrumentation.NewInstrumentedBook("demo", sender)
	defer book.Close()

	gen := workload.NewGenerator(cfg.Workload.Seed, core.Price(cfg.Workload.StartMidPrice), core.Price(cfg.Workload.TickSize))
	ctx := context.Background()

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	// Order flow runs as fast as the book allows; the terminal repaint is
	// throttled separately so a large order count doesn't blow past what a
	// human can actually watch scroll by.
	limiter := rate.NewLimiter(rate.Limit(renderHz), 1)

	for i := 0; i < cfg.Workload.OrderCount; i++ {
		applyOp(ctx, book, gen, gen.Next())

		if i%renderEvery == 0 && limiter.Allow() {
			render(book, bold, green, red)
		}
	}

	render(book, bold, green, red)
}

func applyOp(ctx context.Context, book *instrumentation.InstrumentedBook, gen *workload.Generator, op workload.Op) {
	switch op.Kind {
	case workload.OpAdd:
		res, err := book.AddOrder(ctx, op.Price, op.Quantity, op.Side)
		if err == nil && res.RemainingQuantity > 0 {
			gen.Track(res.OrderID)
		}
		for _, f := range res.Fills {
			gen.Untrack(f.BuyOrderID)
			gen.Untrack(f.SellOrderID)
		}
	case workload.OpCancel:
		if book.CancelOrder(ctx, op.TargetOrderID) {
			gen.Untrack(op.TargetOrderID)
		}
	case workload.OpModify:
		book.ModifyOrder(ctx, op.TargetOrderID, op.Quantity)
	}
}

func render(book *instrumentation.InstrumentedBook, bold, green, red *color.Color) {
	snap := book.Snapshot(5)

	fmt.Print("\033[H\033[2J")
	bold.Println("order book")
	bold.Printf("resting orders: %d  bid levels: %d  ask levels: %d\n\n", book.TotalOrders(), book.BidLevels(), book.AskLevels())

	if spread, ok := book.Spread(); ok {
		bold.Printf("spread: %d\n\n", spread)
	}

	fmt.Println("      price      qty  orders")
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		lvl := snap.Asks[i]
		red.Printf("ASK  %6d  %7d  %6d\n", lvl.Price, lvl.Quantity, lvl.OrderCount)
	}
	fmt.Println("     ----------------------")
	for _, lvl := range snap.Bids {
		green.Printf("BID  %6d  %7d  %6d\n", lvl.Price, lvl.Quantity, lvl.OrderCount)
	}
}
