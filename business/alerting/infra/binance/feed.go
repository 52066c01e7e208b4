package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/alerting/app"
	"github.com/fd1az/swap-router/business/alerting/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/wsconn"
)

var _ app.PriceFeed = (*Feed)(nil)

const (
	tracerName = "github.com/fd1az/swap-router/business/alerting/infra/binance"
	meterName  = "github.com/fd1az/swap-router/business/alerting/infra/binance"

	BaseWSURL   = "wss://stream.binance.com:9443"
	BaseWSURLUS = "wss://stream.binance.us:9443"

	sourceName = "binance"

	// Binance drops connections silent for more than 3 minutes.
	keepAliveInterval = 2 * time.Minute
)

// Config holds the feed endpoint and pairs.
type Config struct {
	BaseURL       string
	Symbols       []string // pairs such as ETHUSDC
	QuoteAssets   []string // suffixes stripped to find the token symbol
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxReconnects int // 0 = retry forever
}

// DefaultConfig returns the production endpoint with the default quote assets.
func DefaultConfig(symbols []string) Config {
	return Config{
		BaseURL:      BaseWSURL,
		Symbols:      symbols,
		QuoteAssets:  DefaultQuoteAssets,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

type feedMetrics struct {
	messages     metric.Int64Counter
	observations metric.Int64Counter
	parseErrors  metric.Int64Counter
}

// Feed subscribes to bookTicker streams and forwards mid prices to a sink.
type Feed struct {
	config Config
	logger logger.LoggerInterface
	now    func() time.Time

	conn   *wsconn.Client
	connMu sync.RWMutex
	sink   app.PriceSink

	nextID atomic.Int64
	stop   chan struct{}
	once   sync.Once

	tracer  trace.Tracer
	metrics *feedMetrics
}

// NewFeed creates a Feed. Call Start to connect.
func NewFeed(cfg Config, log logger.LoggerInterface) (*Feed, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}
	if len(cfg.QuoteAssets) == 0 {
		cfg.QuoteAssets = DefaultQuoteAssets
	}

	f := &Feed{
		config: cfg,
		logger: log,
		now:    time.Now,
		stop:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}
	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return f, nil
}

func (f *Feed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feedMetrics{}

	f.metrics.messages, err = meter.Int64Counter(
		"binance_messages_total",
		metric.WithDescription("Total messages received"),
	)
	if err != nil {
		return err
	}

	f.metrics.observations, err = meter.Int64Counter(
		"binance_price_observations_total",
		metric.WithDescription("Mid prices forwarded to the alert service"),
	)
	if err != nil {
		return err
	}

	f.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Message parse errors"),
	)
	return err
}

// Start connects, retrying until ctx ends, and forwards every bookTicker
// update to sink.
func (f *Feed) Start(ctx context.Context, sink app.PriceSink) error {
	ctx, span := f.tracer.Start(ctx, "binance.start",
		trace.WithAttributes(attribute.StringSlice("symbols", f.config.Symbols)),
	)
	defer span.End()

	wsURL, err := f.streamURL()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad stream url")
		return err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, sourceName)
	wsCfg.ReadTimeout = f.config.ReadTimeout
	wsCfg.WriteTimeout = f.config.WriteTimeout
	wsCfg.MaxReconnects = f.config.MaxReconnects

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodePriceFeedFailed, apperror.WithCause(err), apperror.WithContext("failed to create wsconn"))
	}

	f.connMu.Lock()
	f.sink = sink
	f.conn = conn
	f.connMu.Unlock()

	conn.OnMessage(f.handleMessage)

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return apperror.New(apperror.CodePriceFeedFailed, apperror.WithCause(err), apperror.WithContext("failed to connect to Binance"))
	}

	go f.keepAlive(ctx)

	f.logger.Info(ctx, "binance price feed connected", "url", wsURL, "symbols", f.config.Symbols)
	return nil
}

func (f *Feed) streamURL() (string, error) {
	if len(f.config.Symbols) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no binance symbols configured"))
	}

	streams := make([]string, 0, len(f.config.Symbols))
	for _, sym := range f.config.Symbols {
		streams = append(streams, BookTickerStream(sym))
	}

	u, err := url.Parse(f.config.BaseURL)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func (f *Feed) handleMessage(ctx context.Context, data []byte) {
	f.metrics.messages.Add(ctx, 1)

	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Stream == "" {
		var resp WSResponse
		if json.Unmarshal(data, &resp) == nil && resp.ID != 0 {
			return
		}
		f.metrics.parseErrors.Add(ctx, 1)
		f.logger.Debug(ctx, "failed to parse message", "data", string(data[:min(len(data), 200)]))
		return
	}

	if !strings.HasSuffix(event.Stream, "@bookTicker") {
		return
	}

	var ticker BookTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		f.metrics.parseErrors.Add(ctx, 1)
		return
	}
	mid, err := ticker.MidPrice()
	if err != nil {
		f.metrics.parseErrors.Add(ctx, 1)
		f.logger.Debug(ctx, "bad book ticker price", "symbol", ticker.Symbol, "error", err)
		return
	}

	f.connMu.RLock()
	sink := f.sink
	f.connMu.RUnlock()
	if sink == nil {
		return
	}

	f.metrics.observations.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", ticker.Symbol)))
	sink.ObservePrice(ctx, domain.PriceObservation{
		Token:     BaseAsset(ticker.Symbol, f.config.QuoteAssets),
		Price:     mid,
		Source:    sourceName,
		Timestamp: f.now(),
	})
}

func (f *Feed) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		case <-ticker.C:
			f.connMu.RLock()
			conn := f.conn
			f.connMu.RUnlock()
			if conn == nil {
				continue
			}
			req := WSRequest{Method: "LIST_SUBSCRIPTIONS", ID: f.nextID.Add(1)}
			if err := conn.SendJSON(ctx, req); err != nil {
				f.logger.Warn(ctx, "keep-alive failed", "error", err)
			}
		}
	}
}

// IsConnected reports whether the stream is up.
func (f *Feed) IsConnected() bool {
	f.connMu.RLock()
	defer f.connMu.RUnlock()
	return f.conn != nil && f.conn.IsConnected()
}

// Close stops the keep-alive and closes the connection.
func (f *Feed) Close() error {
	f.once.Do(func() { close(f.stop) })

	f.connMu.RLock()
	conn := f.conn
	f.connMu.RUnlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
