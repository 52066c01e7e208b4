// Package deepseek implements the advisory Completer against an
// OpenAI-compatible chat completions endpoint.
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/advisory/app"
	"github.com/fd1az/swap-router/business/advisory/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/httpclient"
	"github.com/fd1az/swap-router/internal/logger"
)

var _ app.Completer = (*Client)(nil)

const (
	tracerName = "github.com/fd1az/swap-router/business/advisory/infra/deepseek"
	meterName  = "github.com/fd1az/swap-router/business/advisory/infra/deepseek"

	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"
	defaultTimeout = 10 * time.Second

	completionsPath = "/chat/completions"
)

// Config holds endpoint and credentials.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int            `json:"index"`
		Message      domain.Message `json:"message"`
		FinishReason string         `json:"finish_reason"`
	} `json:"choices"`
}

type clientMetrics struct {
	completions metric.Int64Counter
	latency     metric.Float64Histogram
}

// Client posts conversations to /chat/completions behind a circuit breaker.
type Client struct {
	config Config
	http   httpclient.Client
	cb     *circuitbreaker.CircuitBreaker[string]
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a Client. An empty BaseURL, Model or Timeout takes the
// DeepSeek defaults.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("advisory api key is required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithProviderName("deepseek"),
		httpclient.WithHeaders(map[string]string{"Authorization": "Bearer " + cfg.APIKey}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	c := &Client{
		config: cfg,
		http:   hc,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("deepseek")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Warn(context.Background(), "advisory circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[string](cbCfg)

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.completions, err = meter.Int64Counter(
		"advisory_completions_total",
		metric.WithDescription("Chat completion requests, by outcome"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"advisory_completion_latency_ms",
		metric.WithDescription("Chat completion latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// Complete returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	ctx, span := c.tracer.Start(ctx, "deepseek.complete",
		trace.WithAttributes(
			attribute.String("model", c.config.Model),
			attribute.Int("messages", len(messages)),
		),
	)
	defer span.End()

	start := time.Now()
	text, err := c.cb.Execute(func() (string, error) {
		return c.complete(ctx, messages)
	})
	c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		c.metrics.completions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err), apperror.WithContext("deepseek"))
		}
		return "", err
	}

	c.metrics.completions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	return text, nil
}

func (c *Client) complete(ctx context.Context, messages []domain.Message) (string, error) {
	var out chatResponse
	_, err := c.http.NewRequestWithOptions(
		httpclient.WithResponseErrorHandler(httpclient.RejectNon2xx),
		httpclient.WithLabels(httpclient.Label{Key: "model", Value: c.config.Model}),
		httpclient.WithHeadersLogConfig(true, "Authorization"),
	).
		SetBody(chatRequest{Model: c.config.Model, Messages: messages}).
		SetResult(&out).
		Post(ctx, completionsPath)
	if err != nil {
		return "", apperror.New(apperror.CodeAdvisoryFailed, apperror.WithCause(err))
	}
	if len(out.Choices) == 0 {
		return "", apperror.New(apperror.CodeAdvisoryFailed, apperror.WithContext("response has no choices"))
	}
	return out.Choices[0].Message.Content, nil
}
