package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	slogotel "github.com/remychantenay/slog-otel"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	NumRequests  metric.Int64Counter
	ResponseTime metric.Int64Histogram
)

var gitHashRegex = regexp.MustCompile(`^[a-f0-9]{40}$`)

func buildInfo() (name string, version string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown", "unknown"
	}

	version = "unknown"
	dirty := false
	for _, kv := range bi.Settings {
		switch kv.Key {
		case "vcs.revision":
			version = kv.Value
			if gitHashRegex.MatchString(version) {
				version = version[:7]
			}
		case "vcs.modified":
			dirty = kv.Value == "true"
		}
	}
	if dirty {
		version += "-dirty"
	}

	return bi.Path, version
}

type otelOptions struct {
	logWriter io.Writer
	level     slog.Level
}

type OTelOpt func(*otelOptions)

// WithLogWriter sends the text log output to w instead of stdout.
func WithLogWriter(w io.Writer) OTelOpt {
	return func(o *otelOptions) {
		o.logWriter = w
	}
}

func WithLogLevel(level slog.Level) OTelOpt {
	return func(o *otelOptions) {
		o.level = level
	}
}

// SetupOTelSDK installs the default slog logger and, when otlpURL is set, the
// OTLP/gRPC trace, log and metric pipelines. The returned function flushes
// and stops every provider that was started.
func SetupOTelSDK(ctx context.Context, otlpURL string, opts ...OTelOpt) (func(context.Context), error) {
	o := otelOptions{logWriter: os.Stdout, level: slog.LevelDebug}
	for _, opt := range opts {
		opt(&o)
	}

	name, version := buildInfo()
	var shutdowns []func(context.Context) error

	if otlpURL != "" {
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
			semconv.ServiceInstanceID(uuid.New().String()),
		))
		if err != nil {
			return nil, fmt.Errorf("failed to build otel resource: %w", err)
		}

		conn, err := grpc.NewClient(otlpURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp grpc client: %w", err)
		}

		shutdowns, err = setupProviders(ctx, conn, res)
		if err != nil {
			return nil, err
		}
	}

	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(o.logWriter, &slog.HandlerOptions{Level: o.level}),
		slogotel.OtelHandler{Next: otelslog.NewHandler(name, otelslog.WithVersion(version))},
	))
	slog.SetDefault(logger)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if otlpURL == "" {
		slog.WarnContext(ctx, "No OTLP url provided, observability data will not be collected")
	}
	slog.InfoContext(ctx, "OpenTelemetry setup successful", "name", name, "version", version)

	return func(ctx context.Context) {
		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(ctx))
		}
		if err := errors.Join(errs...); err != nil {
			slog.ErrorContext(ctx, "Failed to shut down otel providers", "error", err)
		}
	}, nil
}

func setupProviders(ctx context.Context, conn *grpc.ClientConn, res *resource.Resource) ([]func(context.Context) error, error) {
	traceExp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExp)),
	)
	otel.SetTracerProvider(traceProvider)

	logExp, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	logProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
	)
	global.SetLoggerProvider(logProvider)

	metricExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(meterProvider)

	if err = runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return nil, fmt.Errorf("failed to start runtime metrics: %w", err)
	}

	return []func(context.Context) error{
		traceProvider.Shutdown,
		logProvider.Shutdown,
		meterProvider.Shutdown,
	}, nil
}

// SetupRequestMetrics creates NumRequests and ResponseTime on the named meter.
func SetupRequestMetrics(ctx context.Context, meterName string) {
	meter := otel.Meter(meterName)

	var err error
	NumRequests, err = meter.Int64Counter("num_requests", metric.WithDescription("Number of NATS requests received"))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to init metric `num_requests`", "error", err)
	}

	ResponseTime, err = meter.Int64Histogram("request_response_time",
		metric.WithDescription("Response time of request handlers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to init metric `request_response_time`", "error", err)
	}
}
