package observability

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/envutil"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// otelSettings is read once per InitOTel call.
type otelSettings struct {
	enabled     bool
	endpoint    string
	headers     map[string]string
	insecure    bool
	sampleRatio float64
}

func loadOtelSettings(log *logger.Logger) otelSettings {
	return otelSettings{
		enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		endpoint:    strings.TrimSpace(envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log)),
		headers:     parseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
		insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		sampleRatio: parseRatio(envutil.String("OTEL_SAMPLER_RATIO", "", log), 0.1),
	}
}

// InitOTel installs the global tracer provider when OTEL_ENABLED is set and
// returns its shutdown func, or nil when tracing stays off.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if log == nil {
			log = logger.Nop()
		}
		settings := loadOtelSettings(log)
		if !settings.enabled {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "estrella-backend"
		}
		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
				attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			),
		)
		if err != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.sampleRatio))),
			sdktrace.WithResource(res),
		}
		exporter, err := buildTraceExporter(ctx, log, settings)
		if err != nil {
			log.Warn("otel exporter init failed (continuing)", "error", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", serviceName, "endpoint", settings.endpoint)
	})
	return otelShutdown
}

func parseRatio(raw string, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return math.Min(1, math.Max(0, f))
}

// parseHeaders reads "k1=v1,k2=v2".
func parseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// buildTraceExporter ships to OTLP/HTTP when an endpoint is set and to
// stdout otherwise.
func buildTraceExporter(ctx context.Context, log *logger.Logger, settings otelSettings) (sdktrace.SpanExporter, error) {
	if settings.endpoint == "" {
		log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(settings.endpoint)}
	if settings.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if settings.headers != nil {
		opts = append(opts, otlptracehttp.WithHeaders(settings.headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

const tracerName = "github.com/yungbote/estrella-backend"

// StartSpan starts a span on the global provider. With tracing disabled the
// provider is a no-op and so is the span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span before ending it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
