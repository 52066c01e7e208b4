// Package app contains the transaction monitor.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/fd1az/swap-router/business/chain/app"
	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/business/monitor/domain"
	swapapp "github.com/fd1az/swap-router/business/swap/app"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/monitor/app"
	meterName  = "github.com/fd1az/swap-router/business/monitor/app"
)

var _ swapapp.Tracker = (*Monitor)(nil)

// Config holds polling and retention policy.
type Config struct {
	PollInterval    time.Duration
	Timeout         time.Duration
	MaxPollErrors   int
	Retention       time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig polls every 5s, times out after 1h, fails once more than 5
// consecutive reads have errored and forgets terminal entries after 24h.
func DefaultConfig() Config {
	return Config{
		PollInterval:    5 * time.Second,
		Timeout:         time.Hour,
		MaxPollErrors:   5,
		Retention:       24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxPollErrors < 1 {
		c.MaxPollErrors = d.MaxPollErrors
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

type monitorMetrics struct {
	tracked    metric.Int64Counter
	terminal   metric.Int64Counter
	pollErrors metric.Int64Counter
	pending    metric.Int64UpDownCounter
}

// Monitor owns the set of submitted transactions and drives each to a
// terminal state.
type Monitor struct {
	config   Config
	receipts chainapp.ReceiptReader
	store    swapapp.AnalyticsStore
	events   *events.Registry
	logger   logger.LoggerInterface
	now      func() time.Time

	mu  sync.Mutex
	txs map[common.Hash]*domain.TransactionState

	stop     chan struct{}
	stopOnce sync.Once
	running  bool
	wg       sync.WaitGroup

	tracer  trace.Tracer
	metrics *monitorMetrics
}

// NewMonitor creates a Monitor. Call Start to begin polling.
func NewMonitor(cfg Config, receipts chainapp.ReceiptReader, store swapapp.AnalyticsStore, hub *events.Registry, log logger.LoggerInterface) (*Monitor, error) {
	m := &Monitor{
		config:   cfg.withDefaults(),
		receipts: receipts,
		store:    store,
		events:   hub,
		logger:   log,
		now:      time.Now,
		txs:      make(map[common.Hash]*domain.TransactionState),
		stop:     make(chan struct{}),
		tracer:   otel.Tracer(tracerName),
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return m, nil
}

// WithClock replaces time.Now.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

func (m *Monitor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &monitorMetrics{}

	m.metrics.tracked, err = meter.Int64Counter(
		"transactions_tracked_total",
		metric.WithDescription("Transactions registered with the monitor"),
	)
	if err != nil {
		return err
	}

	m.metrics.terminal, err = meter.Int64Counter(
		"transactions_terminal_total",
		metric.WithDescription("Transactions that reached a terminal state, by outcome"),
	)
	if err != nil {
		return err
	}

	m.metrics.pollErrors, err = meter.Int64Counter(
		"transaction_poll_errors_total",
		metric.WithDescription("Receipt reads that failed"),
	)
	if err != nil {
		return err
	}

	m.metrics.pending, err = meter.Int64UpDownCounter(
		"transactions_pending",
		metric.WithDescription("Transactions currently pending"),
	)
	return err
}

// Track registers a submitted transaction as PENDING.
func (m *Monitor) Track(ctx context.Context, hash common.Hash, analytics *swapdomain.TradeAnalytics) error {
	select {
	case <-m.stop:
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("monitor stopped"))
	default:
	}

	a := analytics.Clone()
	a.Status = swapdomain.StatusPending
	a.TxHash = hash

	m.mu.Lock()
	if _, exists := m.txs[hash]; exists {
		m.mu.Unlock()
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("already tracking "+hash.Hex()))
	}
	m.txs[hash] = &domain.TransactionState{
		Hash:        hash,
		Status:      swapdomain.StatusPending,
		SubmittedAt: m.now(),
		Analytics:   a,
	}
	m.mu.Unlock()

	m.metrics.tracked.Add(ctx, 1)
	m.metrics.pending.Add(ctx, 1)
	m.logger.Info(ctx, "tracking transaction", "tx_hash", hash.Hex())

	m.events.Emit(events.TransactionSubmitted, domain.TransactionSubmittedEvent{Hash: hash, Analytics: a.Clone()})
	return nil
}

// Start runs the poll and cleanup loops until Stop or ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.loop(ctx, m.config.PollInterval, func() { m.Poll(ctx) })
	go m.loop(ctx, m.config.CleanupInterval, func() { m.Sweep() })
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration, fn func()) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Stop halts scheduling and waits for the loops. In-flight reads finish but
// no further polls start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// Poll reads one receipt per pending transaction and applies the transitions.
func (m *Monitor) Poll(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "monitor.poll")
	defer span.End()

	pending := m.pendingHashes()
	span.SetAttributes(attribute.Int("pending", len(pending)))

	for _, hash := range pending {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		receipt, err := m.receipts.Receipt(ctx, hash)
		if err != nil {
			m.metrics.pollErrors.Add(ctx, 1)
			span.RecordError(err)
		}
		m.apply(ctx, hash, receipt, err)
	}
	span.SetStatus(codes.Ok, "polled")
}

func (m *Monitor) pendingHashes() []common.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]common.Hash, 0, len(m.txs))
	for h, s := range m.txs {
		if s.Status == swapdomain.StatusPending {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

type outcome int

const (
	stillPending outcome = iota
	completed
	rejected
	tooManyErrors
	timedOut
)

func (o outcome) String() string {
	switch o {
	case completed:
		return "completed"
	case rejected:
		return "rejected"
	case tooManyErrors:
		return "poll_errors"
	case timedOut:
		return "timeout"
	default:
		return "pending"
	}
}

// apply moves one transaction according to a receipt read. Events and
// persistence happen after the lock is released.
func (m *Monitor) apply(ctx context.Context, hash common.Hash, receipt *chaindomain.Receipt, readErr error) {
	now := m.now()
	if readErr == nil && receipt == nil {
		receipt = chaindomain.PendingReceipt(hash)
	}

	m.mu.Lock()
	state, ok := m.txs[hash]
	if !ok || state.Status != swapdomain.StatusPending {
		m.mu.Unlock()
		return
	}

	result := stillPending
	elapsed := now.Sub(state.SubmittedAt)

	switch {
	case readErr != nil:
		state.RetryCount++
		state.LastError = readErr.Error()
		if state.RetryCount > m.config.MaxPollErrors {
			result = tooManyErrors
		} else if elapsed >= m.config.Timeout {
			result = timedOut
		}
	case receipt.Status == chaindomain.ReceiptAccepted:
		state.RetryCount = 0
		state.Receipt = receipt
		result = completed
	case receipt.Status == chaindomain.ReceiptRejected:
		state.RetryCount = 0
		state.Receipt = receipt
		state.LastError = receipt.RevertReason
		if state.LastError == "" {
			state.LastError = "transaction reverted"
		}
		result = rejected
	default:
		state.RetryCount = 0
		if elapsed >= m.config.Timeout {
			result = timedOut
		}
	}

	switch result {
	case stillPending:
		m.mu.Unlock()
		return
	case completed:
		state.Status = swapdomain.StatusCompleted
	case tooManyErrors:
		state.LastError = fmt.Sprintf("%d consecutive receipt lookups failed: %s", state.RetryCount, state.LastError)
		state.Status = swapdomain.StatusFailed
	case timedOut:
		state.LastError = fmt.Sprintf("no terminal receipt after %s", elapsed)
		state.Status = swapdomain.StatusFailed
	default:
		state.Status = swapdomain.StatusFailed
	}
	state.TerminalAt = now
	state.Analytics = state.Analytics.Finish(state.Status, now)
	snapshot := state.Clone()
	m.mu.Unlock()

	m.metrics.pending.Add(ctx, -1)
	m.metrics.terminal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result.String())))
	m.persist(ctx, snapshot.Analytics)

	switch result {
	case completed:
		m.logger.Info(ctx, "transaction completed", "tx_hash", hash.Hex(), "block", snapshot.Receipt.BlockNumber)
		m.events.Emit(events.TransactionCompleted, domain.TransactionCompletedEvent{
			Hash:      hash,
			Receipt:   snapshot.Receipt,
			Analytics: snapshot.Analytics,
		})
	case timedOut:
		m.logger.Warn(ctx, "transaction timed out", "tx_hash", hash.Hex(), "elapsed", elapsed)
		m.events.Emit(events.TransactionTimeout, domain.TransactionTimeoutEvent{
			Hash:      hash,
			Elapsed:   elapsed,
			Analytics: snapshot.Analytics,
		})
	default:
		m.logger.Warn(ctx, "transaction failed", "tx_hash", hash.Hex(), "error", snapshot.LastError)
		m.events.Emit(events.TransactionFailed, domain.TransactionFailedEvent{
			Hash:      hash,
			Error:     snapshot.LastError,
			Analytics: snapshot.Analytics,
		})
	}
}

func (m *Monitor) persist(ctx context.Context, a *swapdomain.TradeAnalytics) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, a); err != nil {
		m.logger.Error(ctx, "failed to persist trade analytics", "tx_hash", a.TxHash.Hex(), "error", err)
	}
}

// Sweep forgets terminal transactions submitted more than the retention
// window ago. Persisted analytics are not touched.
func (m *Monitor) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for h, s := range m.txs {
		if s.Status.IsTerminal() && now.Sub(s.SubmittedAt) > m.config.Retention {
			delete(m.txs, h)
			removed++
		}
	}
	return removed
}

// ActiveCount returns the number of pending transactions.
func (m *Monitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.txs {
		if s.Status == swapdomain.StatusPending {
			n++
		}
	}
	return n
}

// Get returns a copy of the tracked state.
func (m *Monitor) Get(hash common.Hash) (*domain.TransactionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.txs[hash]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Pending returns copies of the pending transactions, oldest first.
func (m *Monitor) Pending() []*domain.TransactionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.TransactionState, 0, len(m.txs))
	for _, s := range m.txs {
		if s.Status == swapdomain.StatusPending {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// Analytics returns persisted trade analytics in [from, to], newest first.
func (m *Monitor) Analytics(ctx context.Context, from, to time.Time) ([]*swapdomain.TradeAnalytics, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.Range(ctx, from, to)
}
