package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderapp/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	TracesPath    = "/v1/traces"
	LogsPath      = "/v1/logs"
	ExportTimeout = 10 * time.Second
	MaxQueueSize  = 2048
)

// 終了処理は登録の逆順で呼ぶ
type ShutdownFunc func(context.Context) error

func newResource(cfg config.Otel) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
}

func headers(cfg config.Otel) map[string]string {
	if cfg.Authorization == "" {
		return nil
	}
	return map[string]string{"Authorization": cfg.Authorization}
}

// SetupLoggingSDK はOTLP/HTTPへログを送るLoggerProviderをglobalに登録する
func SetupLoggingSDK(ctx context.Context, cfg config.Otel) (ShutdownFunc, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(cfg.Endpoint),
		otlploghttp.WithURLPath(LogsPath),
		otlploghttp.WithHeaders(headers(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("OTLP log exporter: %w", err)
	}

	processor := sdklog.NewBatchProcessor(exporter,
		sdklog.WithExportTimeout(ExportTimeout),
		sdklog.WithMaxQueueSize(MaxQueueSize),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(provider)

	return provider.Shutdown, nil
}

// SetupTracingSDK はOTLP/HTTPへspanを送るTracerProviderをglobalに登録する
func SetupTracingSDK(ctx context.Context, cfg config.Otel) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Kafkaヘッダにもtrace contextを載せる
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithURLPath(TracesPath),
		otlptracehttp.WithHeaders(headers(cfg)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("OTLP trace exporter: %w", err)
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter,
		sdktrace.WithExportTimeout(ExportTimeout),
		sdktrace.WithMaxQueueSize(MaxQueueSize),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(processor),
	)
	otel.SetTracerProvider(tp)

	return tp, tp.Shutdown, nil
}

// Setup はendpointがあればtrace/logの両方を用意する。
// endpointが空のときは何もせず、tpはnil
func Setup(ctx context.Context, cfg config.Otel) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	var shutdownFuncs []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var err error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			err = errors.Join(err, shutdownFuncs[i](ctx))
		}
		shutdownFuncs = nil
		return err
	}

	if cfg.Endpoint == "" {
		return nil, shutdown, nil
	}

	logShutdown, err := SetupLoggingSDK(ctx, cfg)
	if err != nil {
		return nil, shutdown, err
	}
	shutdownFuncs = append(shutdownFuncs, logShutdown)

	tp, traceShutdown, err := SetupTracingSDK(ctx, cfg)
	if err != nil {
		return nil, shutdown, errors.Join(err, shutdown(ctx))
	}
	shutdownFuncs = append(shutdownFuncs, traceShutdown)

	return tp, shutdown, nil
}
