package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/fd1az/swap-router/internal/httpclient"

	dialKeepAlive         = 10 * time.Second
	defaultRequestTimeout = 10 * time.Second
	maxConnsPerHost       = 5
	idleConnTimeout       = 2 * time.Minute
	expectContinueTimeout = 100 * time.Millisecond
)

// Client builds instrumented requests against a base URL.
type Client interface {
	NewRequest() Request
	NewRequestWithOptions(opts ...RequestOption) Request
}

// InstrumentedClient wraps http.Client with otelhttp transport spans, a
// request counter and a latency histogram, all tagged with the provider name.
type InstrumentedClient struct {
	client         *http.Client
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	defaultHeaders map[string]string
	requests       metric.Int64Counter
	latency        metric.Float64Histogram
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	options := NewClientOptions(opts...)

	transport := options.roundTripper
	if transport == nil {
		transport = &http.Transport{
			DialContext:           (&net.Dialer{KeepAlive: dialKeepAlive}).DialContext,
			MaxConnsPerHost:       maxConnsPerHost,
			IdleConnTimeout:       idleConnTimeout,
			ExpectContinueTimeout: expectContinueTimeout,
		}
	}

	timeout := defaultRequestTimeout
	if options.requestTimeout > 0 {
		timeout = options.requestTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)

	requests, err := meter.Int64Counter(
		"http_client_requests_total",
		metric.WithDescription("Outbound HTTP requests, by provider and success"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"http_client_request_duration_ms",
		metric.WithDescription("Outbound HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{
		client:         httpClient,
		providerName:   providerName,
		tracer:         otel.Tracer(instrumentationName),
		baseURL:        options.baseURL,
		defaultHeaders: options.headers,
		requests:       requests,
		latency:        latency,
	}, nil
}

// NewRequest creates a request builder with default options.
func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

// NewRequestWithOptions creates a request builder with per-request options.
func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	reqOpts := NewRequestOptions(opts...)

	headers := make(map[string]string, len(c.defaultHeaders))
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}

	return &requestBuilder{
		client:       c,
		headers:      headers,
		errorHandler: reqOpts.responseErrorHandler,
		labels:       reqOpts.labels,
		redact:       reqOpts.redactHeaders,
		logHeaders:   reqOpts.logHeaders,
	}
}
