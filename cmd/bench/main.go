// Command bench drives a synthetic order-flow workload through an
// instrumented order book while timing each operation, then reports
// latency percentiles (optionally as a CSV file).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ashgrove-systems/ticklob/config"
	"github.com/ashgrove-systems/ticklob/pkg/bench"
	"github.com/ashgrove-systems/ticklob/pkg/core"
	"github.com/ashgrove-systems/ticklob/pkg/instrumentation"
	"github.com/ashgrove-systems/ticklob/pkg/logging"
	"github.com/ashgrove-systems/ticklob/pkg/messaging"
	"github.com/ashgrove-systems/ticklob/pkg/workload"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Setup(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	shutdownTelemetry, err := instrumentation.Init(instrumentation.Config{
		CollectorEnabled: cfg.Telemetry.CollectorEnabled,
		Endpoint:         cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer shutdownTelemetry()

	if cfg.Telemetry.CollectorEnabled {
		if err := instrumentation.StartRuntimeMetrics(); err != nil {
			log.Warn().Err(err).Msg("failed to start runtime metrics")
		}
	}

	book := instrumentation.NewInstrumentedBook("bench", messaging.NoopSender{})
	defer book.Close()

	gen := workload.NewGenerator(cfg.Workload.Seed, core.Price(cfg.Workload.StartMidPrice), core.Price(cfg.Workload.TickSize))
	ctx := context.Background()
	harness := bench.NewHarness()

	runOps(ctx, book, gen, cfg.Bench.WarmupIterations, nil)
	runOps(ctx, book, gen, cfg.Bench.Iterations, harness)

	results := harness.Results()
	for _, r := range results {
		log.Info().
			Str("operation", r.Operation).
			Int64("count", r.Count).
			Float64("p50_us", r.P50).
			Float64("p99_us", r.P99).
			Float64("max_us", r.Max).
			Msg("latency")
	}

	if cfg.Bench.OutputCSV == "" {
		return nil
	}

	f, err := os.Create(cfg.Bench.OutputCSV)
	if err != nil {
		return fmt.Errorf("creating csv output: %w", err)
	}
	defer f.Close()

	return bench.WriteCSV(f, results)
}

func runOps(ctx context.Context, book *instrumentation.InstrumentedBook, gen *workload.Generator, n int, harness *bench.Harness) {
	for i := 0; i < n; i++ {
		op := gen.Next()

		switch op.Kind {
		case workload.OpAdd:
			timeOp(harness, "add_order", func() {
				res, err := book.AddOrder(ctx, op.Price, op.Quantity, op.Side)
				if err == nil && res.RemainingQuantity > 0 {
					gen.Track(res.OrderID)
				}
				for _, f := range res.Fills {
					gen.Untrack(f.BuyOrderID)
					gen.Untrack(f.SellOrderID)
				}
			})
		case workload.OpCancel:
			timeOp(harness, "cancel_order", func() {
				if book.CancelOrder(ctx, op.TargetOrderID) {
					gen.Untrack(op.TargetOrderID)
				}
			})
		case workload.OpModify:
			timeOp(harness, "modify_order", func() {
				book.ModifyOrder(ctx, op.TargetOrderID, op.Quantity)
			})
		}
	}
}

func timeOp(harness *bench.Harness, op string, fn func()) {
	if harness == nil {
		fn()
		return
	}
	harness.Time(op, fn)
}
