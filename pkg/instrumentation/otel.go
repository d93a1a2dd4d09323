// Package instrumentation wraps a *core.OrderBook with the cross-cutting
// concerns the matching engine itself deliberately avoids: structured
// logging, OpenTelemetry tracing and metrics, and asynchronous fill-event
// publication. Nothing in pkg/core imports this package; InstrumentedBook
// imports pkg/core and composes it instead.
package instrumentation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ServiceName identifies this process to the collector. Unlike the
// dual-tracer split a multi-service deployment needs, a single in-process
// order book only ever needs one tracer and one meter.
const ServiceName = "matching-engine"

const instrumentationName = "github.com/ashgrove-systems/ticklob/pkg/instrumentation"

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	initOnce       sync.Once
)

// Config holds OpenTelemetry exporter configuration.
type Config struct {
	ServiceVersion   string
	Endpoint         string
	ConnectTimeout   time.Duration
	CollectorEnabled bool
}

// Init wires a tracer provider and meter provider to an OTLP/gRPC
// collector. When cfg.CollectorEnabled is false (the default) the global
// providers remain the no-op implementations otel ships, so every span and
// instrument call in this package stays a cheap no-op too.
func Init(cfg Config) (func(), error) {
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "0.1.0"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	var cleanup []func()
	resource := initResource(cfg.ServiceVersion)

	if cfg.CollectorEnabled {
		tp, err := initTracerProvider(cfg, resource)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize tracer provider, tracing disabled")
		} else {
			tracerProvider = tp
			cleanup = append(cleanup, shutdownFn(tp.Shutdown, cfg.ConnectTimeout))
		}

		mp, err := initMeterProvider(cfg, resource)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize meter provider, metrics disabled")
		} else {
			meterProvider = mp
			cleanup = append(cleanup, shutdownFn(mp.Shutdown, cfg.ConnectTimeout))
		}
	}

	if tracerProvider != nil {
		tracer = tracerProvider.Tracer(ServiceName)
	} else {
		tracer = otel.GetTracerProvider().Tracer(ServiceName)
	}

	return func() {
		for _, fn := range cleanup {
			fn()
		}
	}, nil
}

func shutdownFn(shutdown func(context.Context) error, timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down telemetry provider")
		}
	}
}

func initResource(serviceVersion string) *sdkresource.Resource {
	extra, err := sdkresource.New(
		context.Background(),
		sdkresource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
		sdkresource.WithOS(),
		sdkresource.WithProcess(),
		sdkresource.WithContainer(),
		sdkresource.WithHost(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build telemetry resource, using default")
		return sdkresource.Default()
	}

	merged, err := sdkresource.Merge(sdkresource.Default(), extra)
	if err != nil {
		log.Warn().Err(err).Msg("failed to merge telemetry resources, using default")
		return sdkresource.Default()
	}
	return merged
}

func initTracerProvider(cfg Config, resource *sdkresource.Resource) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	conn, err := grpc.DialContext(ctx, cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithTimeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMeterProvider(cfg Config, resource *sdkresource.Resource) (*sdkmetric.MeterProvider, error) {
	ctx := context.Background()

	conn, err := grpc.DialContext(ctx, cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithTimeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(5*time.Second))),
		sdkmetric.WithResource(resource),
	)

	otel.SetMeterProvider(mp)
	return mp, nil
}

// Tracer returns the package-level tracer, initializing a no-op fallback
// if Init was never called.
func Tracer() trace.Tracer {
	initOnce.Do(func() {
		if tracer == nil {
			tracer = otel.GetTracerProvider().Tracer(ServiceName)
		}
	})
	return tracer
}

// Meter returns a meter scoped to this package, backed by whatever global
// MeterProvider is currently installed (no-op unless Init enabled metrics).
func Meter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

// ResetForTesting clears package-level telemetry state between tests.
func ResetForTesting() {
	tracer = nil
	tracerProvider = nil
	meterProvider = nil
	initOnce = sync.Once{}
}
