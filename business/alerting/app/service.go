package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/alerting/domain"
	chainapp "github.com/fd1az/swap-router/business/chain/app"
	swapapp "github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/alerting/app"
	meterName  = "github.com/fd1az/swap-router/business/alerting/app"

	snapshotPrefix = "system_metrics_"
)

// Request and error counter keys.
const (
	counterTransactions          = "transactions"
	counterCompletedTransactions = "completedTransactions"
	counterFailedTransactions    = "failedTransactions"
	counterTimeoutTransactions   = "timeoutTransactions"
	counterCacheHits             = "cacheHits"
	counterCacheMisses           = "cacheMisses"

	errorTransaction = "transaction"
	errorTimeout     = "timeout"
	errorCache       = "cache"
)

var _ PriceSink = (*Service)(nil)

// Config holds collection cadence and snapshot retention.
type Config struct {
	CollectInterval time.Duration
	Retention       time.Duration
}

// DefaultConfig collects every 60s and keeps snapshots for 24h.
func DefaultConfig() Config {
	return Config{CollectInterval: time.Minute, Retention: 24 * time.Hour}
}

type serviceMetrics struct {
	hitRate     metric.Float64Gauge
	apiLatency  metric.Float64Gauge
	errorRate   metric.Float64Gauge
	active      metric.Int64Gauge
	alertsFired metric.Int64Counter
}

type priceAlert struct {
	domain.PriceAlert
	seq         uint64
	baseline    decimal.Decimal
	hasBaseline bool
}

type systemAlert struct {
	domain.SystemAlert
	seq uint64
}

// Service aggregates counters from the event hub into periodic snapshots and
// evaluates one-shot price and system alerts.
type Service struct {
	config    Config
	probe     chainapp.LivenessProbe
	active    ActiveCounter
	store     swapapp.AnalyticsStore
	events    *events.Registry
	logger    logger.LoggerInterface
	now       func() time.Time
	snapshots *cache.Cache[string, domain.SystemMetrics]

	mu           sync.Mutex
	requests     map[string]int64
	errors       map[string]int64
	priceAlerts  map[string]*priceAlert
	systemAlerts map[string]*systemAlert
	prices       map[string]domain.PriceObservation
	seq          uint64

	unsubscribe []func()
	stop        chan struct{}
	stopOnce    sync.Once
	running     bool
	wg          sync.WaitGroup

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewService creates a Service and subscribes it to cache and transaction
// events on hub. probe and active may be nil.
func NewService(cfg Config, probe chainapp.LivenessProbe, active ActiveCounter, store swapapp.AnalyticsStore, hub *events.Registry, log logger.LoggerInterface) (*Service, error) {
	d := DefaultConfig()
	if cfg.CollectInterval <= 0 {
		cfg.CollectInterval = d.CollectInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = d.Retention
	}

	s := &Service{
		config:       cfg,
		probe:        probe,
		active:       active,
		store:        store,
		events:       hub,
		logger:       log,
		now:          time.Now,
		requests:     make(map[string]int64),
		errors:       make(map[string]int64),
		priceAlerts:  make(map[string]*priceAlert),
		systemAlerts: make(map[string]*systemAlert),
		prices:       make(map[string]domain.PriceObservation),
		stop:         make(chan struct{}),
		tracer:       otel.Tracer(tracerName),
	}
	s.snapshots = cache.New[string, domain.SystemMetrics](time.Hour, cache.WithName("system_metrics"), cache.WithClock(s.clock))

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	s.subscribe()
	return s, nil
}

// WithClock replaces time.Now for snapshots, alert ids and the snapshot cache.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time { return s.now() }

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.hitRate, err = meter.Float64Gauge(
		"cache_hit_rate_percent",
		metric.WithDescription("Cache hit rate at the last collection"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return err
	}

	s.metrics.apiLatency, err = meter.Float64Gauge(
		"chain_api_latency_ms",
		metric.WithDescription("Liveness probe round trip, -1 on failure"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.errorRate, err = meter.Float64Gauge(
		"error_rate_percent",
		metric.WithDescription("Errors over requests at the last collection"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return err
	}

	s.metrics.active, err = meter.Int64Gauge(
		"active_transactions",
		metric.WithDescription("Pending transactions at the last collection"),
	)
	if err != nil {
		return err
	}

	s.metrics.alertsFired, err = meter.Int64Counter(
		"alerts_triggered_total",
		metric.WithDescription("Alerts that fired, by kind"),
	)
	return err
}

func (s *Service) subscribe() {
	count := func(request, errKey string) events.Handler {
		return func(events.Event) {
			s.mu.Lock()
			s.requests[request]++
			if errKey != "" {
				s.errors[errKey]++
			}
			s.mu.Unlock()
		}
	}

	s.unsubscribe = []func(){
		s.events.On(events.TransactionSubmitted, count(counterTransactions, "")),
		s.events.On(events.TransactionCompleted, count(counterCompletedTransactions, "")),
		s.events.On(events.TransactionFailed, count(counterFailedTransactions, errorTransaction)),
		s.events.On(events.TransactionTimeout, count(counterTimeoutTransactions, errorTimeout)),
		s.events.On(events.CacheHit, count(counterCacheHits, "")),
		s.events.On(events.CacheMiss, count(counterCacheMisses, "")),
		events.Subscribe(s.events, events.CacheError, func(f cache.Failure) {
			s.mu.Lock()
			s.errors[errorCache]++
			s.mu.Unlock()
			s.logger.Warn(context.Background(), "cache error observed", "cache", f.Cache, "key", f.Key, "error", f.Error)
		}),
	}
}

// Start runs the collection loop until Stop or ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.CollectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Collect(ctx)
			}
		}
	}()
}

// Stop halts collection, drops the event subscriptions and closes the
// snapshot cache.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		for _, unsub := range s.unsubscribe {
			unsub()
		}
		s.wg.Wait()
		s.snapshots.Close()
	})
}

// Collect builds a SystemMetrics snapshot, stores it, evaluates system alerts
// and emits metricsCollected. It never fails; a failed probe yields latency -1.
func (s *Service) Collect(ctx context.Context) domain.SystemMetrics {
	ctx, span := s.tracer.Start(ctx, "alerting.collect")
	defer span.End()

	latency := -1.0
	if s.probe != nil {
		d, err := s.probe.Ping(ctx)
		if err != nil {
			span.AddEvent("liveness probe failed", trace.WithAttributes(attribute.String("error", err.Error())))
			s.logger.Warn(ctx, "liveness probe failed", "error", err)
		} else {
			latency = float64(d.Microseconds()) / 1000
		}
	}

	active := 0
	if s.active != nil {
		active = s.active.ActiveCount()
	}

	s.mu.Lock()
	hits, misses := s.requests[counterCacheHits], s.requests[counterCacheMisses]
	var totalRequests, totalErrors int64
	for _, n := range s.requests {
		totalRequests += n
	}
	for _, n := range s.errors {
		totalErrors += n
	}
	s.mu.Unlock()

	snap := domain.SystemMetrics{
		Timestamp:          s.now(),
		CacheHitRate:       domain.Percent(hits, hits+misses),
		APILatency:         latency,
		ErrorRate:          domain.Percent(totalErrors, totalRequests),
		ActiveTransactions: active,
	}

	s.snapshots.Set(ctx, fmt.Sprintf("%s%d", snapshotPrefix, snap.Timestamp.UnixMilli()), snap, s.config.Retention)

	s.metrics.hitRate.Record(ctx, snap.CacheHitRate)
	s.metrics.apiLatency.Record(ctx, snap.APILatency)
	s.metrics.errorRate.Record(ctx, snap.ErrorRate)
	s.metrics.active.Record(ctx, int64(snap.ActiveTransactions))

	span.SetAttributes(
		attribute.Float64("cache_hit_rate", snap.CacheHitRate),
		attribute.Float64("api_latency_ms", snap.APILatency),
		attribute.Float64("error_rate", snap.ErrorRate),
		attribute.Int("active_transactions", snap.ActiveTransactions),
	)

	s.checkSystemAlerts(ctx, snap)
	s.events.Emit(events.MetricsCollected, domain.MetricsCollectedEvent{Metrics: snap})
	return snap
}

// Snapshots returns the retained snapshots, oldest first.
func (s *Service) Snapshots() []domain.SystemMetrics {
	entries := cache.WithPrefix(s.snapshots.Entries(), snapshotPrefix)
	out := make([]domain.SystemMetrics, 0, len(entries))
	for _, m := range entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// AddPriceAlert registers a one-shot price alert and returns its id.
func (s *Service) AddPriceAlert(alert domain.PriceAlert) (string, error) {
	if err := alert.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	alert.ID = s.newID("price_alert")
	s.priceAlerts[alert.ID] = &priceAlert{PriceAlert: alert, seq: s.seq}
	return alert.ID, nil
}

// AddSystemAlert registers a one-shot system alert and returns its id.
func (s *Service) AddSystemAlert(alert domain.SystemAlert) (string, error) {
	if err := alert.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	alert.ID = s.newID("system_alert")
	s.systemAlerts[alert.ID] = &systemAlert{SystemAlert: alert, seq: s.seq}
	return alert.ID, nil
}

// newID must be called with s.mu held.
func (s *Service) newID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, s.now().UnixMilli(), uuid.NewString()[:8])
}

// RemoveAlert cancels an alert. It reports whether the alert existed.
func (s *Service) RemoveAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.priceAlerts[id]; ok {
		delete(s.priceAlerts, id)
		return true
	}
	if _, ok := s.systemAlerts[id]; ok {
		delete(s.systemAlerts, id)
		return true
	}
	return false
}

// HasAlert reports whether id is still registered.
func (s *Service) HasAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, p := s.priceAlerts[id]
	_, sys := s.systemAlerts[id]
	return p || sys
}

// AlertCount returns the number of registered alerts.
func (s *Service) AlertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.priceAlerts) + len(s.systemAlerts)
}

// ObservePrice records a price update and fires the price alerts it
// satisfies. It returns the number of alerts fired.
func (s *Service) ObservePrice(ctx context.Context, obs domain.PriceObservation) int {
	if obs.Timestamp.IsZero() {
		obs.Timestamp = s.now()
	}
	token := strings.ToUpper(obs.Token)
	obs.Token = token

	s.mu.Lock()
	s.prices[token] = obs

	var fired []*priceAlert
	for id, a := range s.priceAlerts {
		if !strings.EqualFold(a.Token, token) {
			continue
		}
		if a.Condition == domain.PercentChange && !a.hasBaseline {
			a.baseline = obs.Price
			a.hasBaseline = true
			continue
		}
		if a.Condition.Triggered(obs.Price, a.Target, a.baseline) {
			delete(s.priceAlerts, id)
			fired = append(fired, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(fired, func(i, j int) bool { return fired[i].seq < fired[j].seq })
	for _, a := range fired {
		s.logger.Info(ctx, "price alert triggered",
			"alert_id", a.ID,
			"token", token,
			"condition", string(a.Condition),
			"target", a.Target.String(),
			"price", obs.Price.String(),
		)
		if a.Callback != nil {
			a.Callback(obs)
		}
		s.metrics.alertsFired.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(domain.KindPrice))))

		p := obs
		s.events.Emit(events.AlertTriggered, domain.AlertTriggeredEvent{
			ID:        a.ID,
			Kind:      domain.KindPrice,
			Price:     &p,
			Timestamp: s.now(),
		})
	}
	return len(fired)
}

// LatestPrice returns the last observation for token.
func (s *Service) LatestPrice(token string) (domain.PriceObservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.prices[strings.ToUpper(token)]
	return obs, ok
}

func (s *Service) checkSystemAlerts(ctx context.Context, snap domain.SystemMetrics) {
	s.mu.Lock()
	var fired []*systemAlert
	for id, a := range s.systemAlerts {
		v, _ := snap.Value(a.Metric)
		if a.Operator.Compare(v, a.Threshold) {
			delete(s.systemAlerts, id)
			fired = append(fired, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(fired, func(i, j int) bool { return fired[i].seq < fired[j].seq })
	for _, a := range fired {
		s.logger.Warn(ctx, "system alert triggered",
			"alert_id", a.ID,
			"metric", string(a.Metric),
			"operator", string(a.Operator),
			"threshold", a.Threshold,
		)
		if a.Callback != nil {
			a.Callback(snap)
		}
		s.metrics.alertsFired.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(domain.KindSystem))))

		m := snap
		s.events.Emit(events.AlertTriggered, domain.AlertTriggeredEvent{
			ID:        a.ID,
			Kind:      domain.KindSystem,
			Metrics:   &m,
			Timestamp: s.now(),
		})
	}
}

// TradingMetrics aggregates the persisted trades in [from, to].
func (s *Service) TradingMetrics(ctx context.Context, from, to time.Time) (domain.TradingMetrics, error) {
	ctx, span := s.tracer.Start(ctx, "alerting.trading_metrics")
	defer span.End()

	if to.Before(from) {
		err := apperror.New(apperror.CodeInvalidInput, apperror.WithContext("window end before start"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid window")
		return domain.TradingMetrics{}, err
	}

	trades, err := s.store.Range(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analytics range failed")
		return domain.TradingMetrics{}, apperror.New(apperror.CodeAnalyticsStoreFailed, apperror.WithCause(err))
	}

	m := domain.ComputeTradingMetrics(trades)
	m.From, m.To = from, to
	span.SetAttributes(attribute.Int("trades", m.TotalTrades))
	return m, nil
}
