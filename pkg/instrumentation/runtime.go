package instrumentation

import (
	"time"

	hostmetrics "go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
)

// StartRuntimeMetrics starts collection of Go runtime metrics (heap, GC
// pauses, goroutine count) and host metrics (CPU, memory, disk, network)
// against the currently installed global MeterProvider.
func StartRuntimeMetrics() error {
	if err := runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(30 * time.Second),
	); err != nil {
		return err
	}

	return hostmetrics.Start()
}
