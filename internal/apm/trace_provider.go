package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/swap-router/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

// ParseProvider maps a config value such as "zipkin" or "OTLP_GRPC_PROVIDER" to a Provider.
func ParseProvider(s string) Provider {
	switch strings.ToLower(strings.TrimSuffix(strings.ToUpper(s), "_PROVIDER")) {
	case "zipkin":
		return ZipkinProvider
	case "otlp", "otlp_grpc", "grpc":
		return OTLPGRPCProvider
	case "otlp_http", "http":
		return OTLPHTTPProvider
	case "console", "stdout":
		return ConsoleProvider
	default:
		return EmptyProvider
	}
}

// Settings carries exporter connection details.
type Settings struct {
	ServiceName string
	Endpoint    string
	// Headers in key=value form, comma separated.
	Headers string
}

func (s Settings) headerMap() map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s.Headers, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type TracerOptions struct {
	exporter           sdktrace.SpanExporter
	tracerProviderName string
	serviceName        string
	useEmpty           bool
}

type TracerOption func(*TracerOptions)

// WithProvider selects the span exporter. Exporter construction errors fall
// back to the empty provider with a logged warning.
func WithProvider(provider Provider, settings Settings, log logger.LoggerInterface) TracerOption {
	exp, err := newExporter(provider, settings)
	if err != nil {
		log.Warn(context.Background(), "trace exporter unavailable, using EmptyProvider",
			"provider", string(provider), "error", err)
		return useEmpty()
	}
	if exp == nil {
		if provider != EmptyProvider {
			log.Warn(context.Background(), "TracerProvider not found, using EmptyProvider", "provider", string(provider))
		}
		return useEmpty()
	}

	return func(option *TracerOptions) {
		option.exporter = exp
		option.tracerProviderName = string(provider)
		option.serviceName = settings.ServiceName
	}
}

func newExporter(provider Provider, s Settings) (sdktrace.SpanExporter, error) {
	switch provider {
	case ZipkinProvider:
		if s.Endpoint == "" {
			return nil, fmt.Errorf("zipkin endpoint is required")
		}
		return zipkin.New(s.Endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpointURL(s.Endpoint),
			otlptracegrpc.WithHeaders(s.headerMap()),
		)
	case OTLPHTTPProvider:
		return otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpointURL(s.Endpoint),
			otlptracehttp.WithHeaders(s.headerMap()),
		)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, nil
	}
}

func useEmpty() TracerOption {
	return func(option *TracerOptions) {
		option.useEmpty = true
		option.tracerProviderName = string(EmptyProvider)
	}
}

func NewTraceProvider(log logger.LoggerInterface, options ...TracerOption) TraceProvider {
	opts := &TracerOptions{}

	for _, opt := range options {
		opt(opts)
	}

	if opts.useEmpty || opts.exporter == nil {
		return NewEmptyTraceProvider()
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", opts.tracerProviderName),
		))
	if err != nil {
		log.Warn(context.Background(), "trace resource merge failed", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{
		tp,
	}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
