// Package bench times matching engine operations with HDR histograms and
// reports the percentiles a latency-sensitive caller actually cares about.
package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Default histogram bounds: microsecond resolution up to one second,
// three significant value digits.
const (
	lowestTrackableValue  = 1
	highestTrackableValue = 1_000_000
	significantDigits     = 3
)

// Result is the recorded percentile latencies for one named operation, in
// microseconds.
type Result struct {
	Operation string
	Count     int64
	P50       float64
	P90       float64
	P99       float64
	P999      float64
	Max       float64
}

// Harness times named operations into per-operation HDR histograms.
type Harness struct {
	histograms map[string]*hdrhistogram.Histogram
}

// NewHarness returns an empty Harness.
func NewHarness() *Harness {
	return &Harness{histograms: make(map[string]*hdrhistogram.Histogram)}
}

// Time runs fn once and records its wall-clock duration against op.
func (h *Harness) Time(op string, fn func()) {
	start := time.Now()
	fn()
	h.Record(op, time.Since(start))
}

// Record stores a pre-measured duration against op, for callers that
// measure outside of Time (e.g. to exclude setup cost from a loop).
func (h *Harness) Record(op string, d time.Duration) {
	hist, ok := h.histograms[op]
	if !ok {
		hist = hdrhistogram.New(lowestTrackableValue, highestTrackableValue, significantDigits)
		h.histograms[op] = hist
	}
	_ = hist.RecordValue(d.Microseconds())
}

// Results returns one Result per operation recorded so far, in no
// particular order.
func (h *Harness) Results() []Result {
	results := make([]Result, 0, len(h.histograms))
	for op, hist := range h.histograms {
		results = append(results, Result{
			Operation: op,
			Count:     hist.TotalCount(),
			P50:       float64(hist.ValueAtQuantile(50)),
			P90:       float64(hist.ValueAtQuantile(90)),
			P99:       float64(hist.ValueAtQuantile(99)),
			P999:      float64(hist.ValueAtQuantile(99.9)),
			Max:       float64(hist.Max()),
		})
	}
	return results
}

// WriteCSV writes one row per Result, microsecond columns, to w.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"operation", "count", "p50_us", "p90_us", "p99_us", "p999_us", "max_us"}); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Operation,
			fmt.Sprintf("%d", r.Count),
			fmt.Sprintf("%.1f", r.P50),
			fmt.Sprintf("%.1f", r.P90),
			fmt.Sprintf("%.1f", r.P99),
			fmt.Sprintf("%.1f", r.P999),
			fmt.Sprintf("%.1f", r.Max),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return cw.Error()
}
