package observability

import (
	"context"
	"time"

	"github.com/annel0/rts-pathfind/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Shutdown останавливает провайдер и сбрасывает накопленные span'ы
type Shutdown func(context.Context) error

// InitTelemetry настраивает OTLP/HTTP экспортер и устанавливает глобальный
// TracerProvider. Пустой endpoint — адрес по умолчанию (localhost:4318)
// или OTEL_EXPORTER_OTLP_ENDPOINT.
func InitTelemetry(ctx context.Context, serviceName, endpoint string) (Shutdown, error) {
	var opts []otlptracehttp.Option
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (endpoint=%q, service=%s)", endpoint, serviceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// Noop — Shutdown для выключенной телеметрии
func Noop(context.Context) error { return nil }
