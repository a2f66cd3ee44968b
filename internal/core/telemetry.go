package core

import (
	"context"

	"api/internal/configuration"
	"api/internal/models"

	"github.com/grafana/pyroscope-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// InitTelemetry wires the optional tracing and profiling backends. It returns
// a shutdown function flushing pending spans, a no-op when tracing is off.
func InitTelemetry(config models.AppConfiguration) func(context.Context) error {
	if config.Profiling.Enabled {
		_, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: configuration.AppName,
			ServerAddress:   config.Profiling.ServerAddress,
		})
		if err != nil {
			zap.L().Error("Failed to start profiler", zap.Error(err))
		} else {
			zap.L().Info("Continuous profiling enabled",
				zap.String("server", config.Profiling.ServerAddress))
		}
	}

	if !config.Tracing.Enabled {
		return func(context.Context) error { return nil }
	}

	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(config.Tracing.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		zap.L().Fatal("Failed to create trace exporter", zap.Error(err))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(configuration.AppName)),
	)
	if err != nil {
		zap.L().Fatal("Failed to build trace resource", zap.Error(err))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	zap.L().Info("Tracing enabled", zap.String("endpoint", config.Tracing.Endpoint))

	return provider.Shutdown
}
