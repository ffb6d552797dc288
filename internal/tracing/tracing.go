package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp_grpc"
	ExporterOTLPHTTP = "otlp_http"
)

// Config selects the trace exporter. Decoded from the tracing section of
// config.yaml.
type Config struct {
	Enabled  bool   `mapstructure:"enabled,omitempty"`
	Exporter string `mapstructure:"exporter,omitempty"`
	Endpoint string `mapstructure:"endpoint,omitempty"`
}

type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider with the configured exporter and
// returns a shutdown function that flushes pending spans. When tracing is
// disabled the returned shutdown is a no-op.
func Setup(ctx context.Context, logger *slog.Logger, conf *Config, serviceName string, serviceVersion string) (ShutdownFunc, error) {
	if conf == nil || !conf.Enabled {
		logger.Info("Tracing disabled")
		return noopShutdown, nil
	}

	exporter, err := newExporter(ctx, conf)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing enabled", "exporter", conf.Exporter, "endpoint", conf.Endpoint)
	return provider.Shutdown, nil
}

func newExporter(ctx context.Context, conf *Config) (sdktrace.SpanExporter, error) {
	switch conf.Exporter {
	case ExporterStdout, "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if conf.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(conf.Endpoint))
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if conf.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(conf.Endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", conf.Exporter)
	}
}
