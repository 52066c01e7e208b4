package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/business/monitor/domain"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/business/swap/infra/store"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

type fakeReceipts struct {
	mu       sync.Mutex
	receipts map[common.Hash]*chaindomain.Receipt
	errs     map[common.Hash]error
	reads    int
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{
		receipts: make(map[common.Hash]*chaindomain.Receipt),
		errs:     make(map[common.Hash]error),
	}
}

func (f *fakeReceipts) Receipt(_ context.Context, hash common.Hash) (*chaindomain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := f.errs[hash]; err != nil {
		return nil, err
	}
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return chaindomain.PendingReceipt(hash), nil
}

func (f *fakeReceipts) set(hash common.Hash, r *chaindomain.Receipt, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r != nil {
		f.receipts[hash] = r
	}
	f.errs[hash] = err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	monitor  *Monitor
	receipts *fakeReceipts
	store    *store.Memory
	clock    *testClock
	hub      *events.Registry

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		receipts: newFakeReceipts(),
		store:    store.NewMemory(24 * time.Hour),
		clock:    &testClock{now: time.Unix(1_700_000_000, 0)},
		hub:      events.NewRegistry("test"),
	}
	f.hub.OnAny(func(ev events.Event) {
		f.mu.Lock()
		f.events = append(f.events, ev)
		f.mu.Unlock()
	})

	m, err := NewMonitor(cfg, f.receipts, f.store, f.hub, logger.New(io.Discard, logger.LevelError, "test", nil))
	require.NoError(t, err)
	f.monitor = m.WithClock(f.clock.Now)

	t.Cleanup(func() {
		f.monitor.Stop()
		f.store.Close()
	})
	return f
}

func (f *fixture) last(t *testing.T) events.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

func (f *fixture) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Name
	}
	return out
}

func (f *fixture) track(t *testing.T, hash common.Hash) {
	t.Helper()
	a := &swapdomain.TradeAnalytics{
		Timestamp: f.clock.Now(),
		AmountIn:  big.NewInt(10),
		AmountOut: big.NewInt(20),
		GasCost:   big.NewInt(1),
		Route:     []common.Address{common.HexToAddress("0xA"), common.HexToAddress("0xB")},
		Status:    swapdomain.StatusPending,
	}
	require.NoError(t, f.monitor.Track(context.Background(), hash, a))
}

var txA = common.HexToHash("0xaa")

func TestMonitor_TrackEmitsSubmitted(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)

	assert.Equal(t, []string{events.TransactionSubmitted}, f.names())
	assert.Equal(t, 1, f.monitor.ActiveCount())

	ev := f.last(t).Payload.(domain.TransactionSubmittedEvent)
	assert.Equal(t, txA, ev.Hash)
	assert.Equal(t, txA, ev.Analytics.TxHash)

	err := f.monitor.Track(context.Background(), txA, &swapdomain.TradeAnalytics{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestMonitor_CompletesAndPersists(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)
	ctx := context.Background()

	f.monitor.Poll(ctx)
	assert.Equal(t, 1, f.monitor.ActiveCount())

	f.clock.Advance(30 * time.Second)
	f.receipts.set(txA, &chaindomain.Receipt{Hash: txA, Status: chaindomain.ReceiptAccepted, BlockNumber: 42}, nil)
	f.monitor.Poll(ctx)

	assert.Equal(t, 0, f.monitor.ActiveCount())
	assert.Equal(t, []string{events.TransactionSubmitted, events.TransactionCompleted}, f.names())

	ev := f.last(t).Payload.(domain.TransactionCompletedEvent)
	assert.Equal(t, uint64(42), ev.Receipt.BlockNumber)
	assert.Equal(t, swapdomain.StatusCompleted, ev.Analytics.Status)
	assert.Equal(t, 30*time.Second, ev.Analytics.ExecutionTime)

	stored, err := f.monitor.Analytics(ctx, f.clock.Now().Add(-time.Hour), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, swapdomain.StatusCompleted, stored[0].Status)

	// Terminal transactions are not polled again.
	reads := f.receipts.reads
	f.monitor.Poll(ctx)
	assert.Equal(t, reads, f.receipts.reads)
}

func TestMonitor_RejectedCarriesRevertReason(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)

	f.receipts.set(txA, &chaindomain.Receipt{Hash: txA, Status: chaindomain.ReceiptRejected, RevertReason: "INSUFFICIENT_OUTPUT_AMOUNT"}, nil)
	f.monitor.Poll(context.Background())

	ev := f.last(t).Payload.(domain.TransactionFailedEvent)
	assert.Equal(t, events.TransactionFailed, f.last(t).Name)
	assert.Equal(t, "INSUFFICIENT_OUTPUT_AMOUNT", ev.Error)
	assert.Equal(t, swapdomain.StatusFailed, ev.Analytics.Status)

	state, ok := f.monitor.Get(txA)
	require.True(t, ok)
	assert.Equal(t, swapdomain.StatusFailed, state.Status)
	assert.False(t, state.TerminalAt.IsZero())
}

func TestMonitor_TimesOutAfterExactlyOneHour(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)
	ctx := context.Background()

	f.clock.Advance(time.Hour - time.Second)
	f.monitor.Poll(ctx)
	assert.Equal(t, 1, f.monitor.ActiveCount())
	assert.Equal(t, []string{events.TransactionSubmitted}, f.names())

	f.clock.Advance(time.Second)
	f.monitor.Poll(ctx)

	assert.Equal(t, 0, f.monitor.ActiveCount())
	got := f.last(t)
	require.Equal(t, events.TransactionTimeout, got.Name)

	ev := got.Payload.(domain.TransactionTimeoutEvent)
	assert.Equal(t, txA, ev.Hash)
	assert.Equal(t, time.Hour, ev.Elapsed)
	require.NotNil(t, ev.Analytics)
	assert.Equal(t, txA, ev.Analytics.TxHash)
	assert.Equal(t, int64(10), ev.Analytics.AmountIn.Int64())
	assert.Equal(t, swapdomain.StatusFailed, ev.Analytics.Status)
}

func TestMonitor_FailsAfterConsecutivePollErrors(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)
	ctx := context.Background()

	f.receipts.set(txA, nil, errors.New("rpc down"))
	for range 5 {
		f.monitor.Poll(ctx)
	}
	state, _ := f.monitor.Get(txA)
	assert.Equal(t, 5, state.RetryCount)
	assert.Equal(t, swapdomain.StatusPending, state.Status)
	assert.Equal(t, 1, f.monitor.ActiveCount())

	f.monitor.Poll(ctx)

	got := f.last(t)
	require.Equal(t, events.TransactionFailed, got.Name)
	assert.Contains(t, got.Payload.(domain.TransactionFailedEvent).Error, "rpc down")
	assert.Equal(t, 0, f.monitor.ActiveCount())
}

func TestMonitor_SuccessfulReadResetsErrorCount(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)
	ctx := context.Background()

	f.receipts.set(txA, nil, errors.New("rpc down"))
	for range 4 {
		f.monitor.Poll(ctx)
	}
	f.receipts.set(txA, nil, nil)
	f.monitor.Poll(ctx)

	state, _ := f.monitor.Get(txA)
	assert.Equal(t, 0, state.RetryCount)

	f.receipts.set(txA, nil, errors.New("rpc down"))
	for range 5 {
		f.monitor.Poll(ctx)
	}
	assert.Equal(t, 1, f.monitor.ActiveCount())
}

func TestMonitor_SweepKeepsRecentTerminalEntries(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, txA)
	ctx := context.Background()

	f.receipts.set(txA, &chaindomain.Receipt{Hash: txA, Status: chaindomain.ReceiptAccepted}, nil)
	f.monitor.Poll(ctx)

	txB := common.HexToHash("0xbb")
	f.track(t, txB)

	f.clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, f.monitor.Sweep())

	f.clock.Advance(time.Second)
	assert.Equal(t, 1, f.monitor.Sweep())

	_, ok := f.monitor.Get(txA)
	assert.False(t, ok)
	_, ok = f.monitor.Get(txB)
	assert.True(t, ok, "pending entries are never swept")

	stored, err := f.monitor.Analytics(ctx, f.clock.Now().Add(-48*time.Hour), f.clock.Now())
	require.NoError(t, err)
	assert.Len(t, stored, 1, "sweeping does not touch persisted analytics")
}

func TestMonitor_PendingOldestFirst(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.track(t, common.HexToHash("0x02"))
	f.clock.Advance(time.Second)
	f.track(t, common.HexToHash("0x01"))

	p := f.monitor.Pending()
	require.Len(t, p, 2)
	assert.Equal(t, common.HexToHash("0x02"), p[0].Hash)
	assert.Equal(t, common.HexToHash("0x01"), p[1].Hash)
}

func TestMonitor_StartPollsUntilStopped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	f := newFixture(t, cfg)
	f.track(t, txA)
	f.receipts.set(txA, &chaindomain.Receipt{Hash: txA, Status: chaindomain.ReceiptAccepted}, nil)

	f.monitor.Start(context.Background())

	assert.Eventually(t, func() bool { return f.monitor.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)

	f.monitor.Stop()
	err := f.monitor.Track(context.Background(), common.HexToHash("0xcc"), &swapdomain.TradeAnalytics{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}
