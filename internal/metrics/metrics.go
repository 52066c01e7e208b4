// Package metrics installs the OpenTelemetry meter provider that every
// module's instruments report through.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/swap-router/internal/logger"
)

// DefaultLatencyBuckets spans a cached quote (about 1ms) to a slow swap
// submission across retries.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func newReader(ctx context.Context, e ExporterCfg) (sdkmetric.Reader, error) {
	switch e.Exporter {
	case ExporterPrometheus:
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil
	case ExporterOTLP:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpointURL(e.Endpoint)}
		if len(e.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(e.Headers))
		}
		if e.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, fmt.Errorf("unknown metric exporter %q", e.Exporter)
	}
}

// latencyView rebuckets every millisecond histogram.
func latencyView(bounds []float64) sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: "*_ms", Kind: sdkmetric.InstrumentKindHistogram},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: bounds}},
	)
}

// NewMetricProvider installs a global meter provider. With no exporter the
// instruments still record but nothing is exported.
func NewMetricProvider(ctx context.Context, options ...OptionFn) (MetricProvider, error) {
	cfg := Config{LatencyBuckets: DefaultLatencyBuckets}
	for _, opt := range options {
		opt(&cfg)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		)),
		sdkmetric.WithView(latencyView(cfg.LatencyBuckets)),
	}
	for _, e := range cfg.Exporters {
		r, err := newReader(ctx, e)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(r))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// ServePrometheusMetrics serves the default Prometheus registry in the
// background. Callers own the returned server's shutdown.
func ServePrometheusMetrics(log logger.LoggerInterface, opts ...ServerOptionFn) *http.Server {
	cfg := serverConfig{port: "2223", path: "/metrics"}
	for _, o := range opts {
		o(&cfg)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.path, promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(context.Background(), "serving metrics", "addr", srv.Addr, "path", cfg.path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()

	return srv
}
