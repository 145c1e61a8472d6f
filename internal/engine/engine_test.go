package engine

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesa-livre/print-agent/internal/layout"
	"github.com/mesa-livre/print-agent/internal/model"
	"github.com/mesa-livre/print-agent/internal/sink"
	"github.com/mesa-livre/print-agent/internal/state"
)

// manualClock advances only when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeFeed struct {
	mu      sync.Mutex
	orders  []model.Order
	printed []int64
}

func (f *fakeFeed) ListOrders(ctx context.Context) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Order(nil), f.orders...), nil
}

func (f *fakeFeed) MarkPrinted(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	f.printed = append(f.printed, orderID)
	f.mu.Unlock()
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	writes []string
	errs   []error // consumed one per Write; nil slice means always succeed
}

func (s *fakeSink) Write(ctx context.Context, transport model.Transport, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, text)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *fakeSink) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type fakeResolver struct{}

func (fakeResolver) Resolve(string) model.Transport {
	return model.Transport{Kind: model.TransportSimulated}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEngine(t *testing.T, clock Clock, fd *fakeFeed, sk *fakeSink) *Engine {
	t.Helper()
	e, err := New(Options{
		Log:          quietLogger(),
		Feed:         fd,
		Sink:         sk,
		Resolver:     fakeResolver{},
		Layout:       layout.Default,
		Clock:        clock,
		GracePeriod:  5 * time.Second,
		PollInterval: time.Hour,
	})
	require.NoError(t, err)
	e.SelectPrinter("/dev/usb/lp0")
	return e
}

func orderAt(id int64, createdAt time.Time) model.Order {
	amount := decimal.NewFromInt(10)
	return model.Order{
		ID:              id,
		CustomerName:    "Maria",
		ItemDescription: "1x Marmita",
		Amount:          &amount,
		CreatedAt:       createdAt,
	}
}

func TestAdmitAtMostOnce(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	e := newTestEngine(t, clock, &fakeFeed{}, &fakeSink{})
	require.NoError(t, e.Enable())

	order := orderAt(1, start.Add(time.Second))
	clock.Advance(10 * time.Second)

	assert.True(t, e.tryAdmit(order), "first detector admits")
	assert.False(t, e.tryAdmit(order), "second detector sees the mark")
	assert.Equal(t, 1, e.queue.Len())
}

func TestAdmissionGates(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*Engine, *manualClock, *model.Order)
	}{
		{"disabled", func(e *Engine, c *manualClock, o *model.Order) {
			require.NoError(t, e.Disable())
		}},
		{"already printed", func(e *Engine, c *manualClock, o *model.Order) {
			o.Printed = true
		}},
		{"incomplete order", func(e *Engine, c *manualClock, o *model.Order) {
			o.CustomerName = ""
		}},
		{"negative amount", func(e *Engine, c *manualClock, o *model.Order) {
			neg := decimal.NewFromInt(-1)
			o.Amount = &neg
		}},
		{"created before activation", func(e *Engine, c *manualClock, o *model.Order) {
			o.CreatedAt = start.Add(-time.Minute)
		}},
		{"created exactly at activation", func(e *Engine, c *manualClock, o *model.Order) {
			o.CreatedAt = start
		}},
		{"no printer selected", func(e *Engine, c *manualClock, o *model.Order) {
			e.SelectPrinter("")
		}},
		{"within startup grace window", func(e *Engine, c *manualClock, o *model.Order) {
			e.mu.Lock()
			e.startedAt = c.Now()
			e.mu.Unlock()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newManualClock(start)
			e := newTestEngine(t, clock, &fakeFeed{}, &fakeSink{})
			require.NoError(t, e.Enable())
			clock.Advance(time.Minute)

			order := orderAt(1, start.Add(time.Second))
			tt.mutate(e, clock, &order)

			assert.False(t, e.tryAdmit(order))
			assert.Equal(t, 0, e.queue.Len())
		})
	}
}

func TestStartupGraceWindow(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	e := newTestEngine(t, clock, &fakeFeed{}, &fakeSink{})
	require.NoError(t, e.Enable())

	order := orderAt(1, start.Add(time.Second))
	clock.Advance(3 * time.Second)
	assert.False(t, e.tryAdmit(order), "still inside the startup grace window")

	clock.Advance(5 * time.Second)
	assert.True(t, e.tryAdmit(order), "admitted after the window elapses")
}

func TestReconcileAdmitsOnlyPostActivationOrders(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	fd := &fakeFeed{orders: []model.Order{
		orderAt(1, start.Add(-time.Second)),
		orderAt(2, start.Add(time.Second)),
	}}
	e := newTestEngine(t, clock, fd, &fakeSink{})
	require.NoError(t, e.Enable())
	clock.Advance(10 * time.Second)

	// two detectors firing in the same tick
	e.reconcile(context.Background())
	e.reconcile(context.Background())

	require.Equal(t, 1, e.queue.Len())
	job, ok := e.queue.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(2), job.ID)
}

func TestPrintJobSuccess(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	fd := &fakeFeed{}
	sk := &fakeSink{}
	e := newTestEngine(t, clock, fd, sk)
	require.NoError(t, e.Enable())
	clock.Advance(time.Minute)

	order := orderAt(7, start.Add(time.Second))
	require.True(t, e.tryAdmit(order))

	job, ok := e.queue.Pop()
	require.True(t, ok)
	e.printJob(context.Background(), job)

	assert.Equal(t, 1, sk.writeCount())
	assert.Contains(t, sk.writes[0], "Maria")
	assert.Equal(t, []int64{7}, fd.printed)

	st := e.Status()
	assert.Equal(t, int64(7), st.LastPrintedID)
	assert.Empty(t, st.LastError)
}

func TestPrintFailureIsTerminal(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	fd := &fakeFeed{}
	sk := &fakeSink{errs: []error{
		&sink.PrintError{Code: sink.ErrCodePermissionDenied, Device: "/dev/usb/lp0"},
	}}
	e := newTestEngine(t, clock, fd, sk)
	require.NoError(t, e.Enable())
	clock.Advance(time.Minute)

	order := orderAt(7, start.Add(time.Second))
	require.True(t, e.tryAdmit(order))
	job, _ := e.queue.Pop()
	e.printJob(context.Background(), job)

	assert.Empty(t, fd.printed, "failed print never marks the backend")
	assert.Equal(t, string(sink.ErrCodePermissionDenied), e.Status().LastError)

	// the order stays processed: no automatic second attempt
	assert.False(t, e.tryAdmit(order))
}

func TestDisableClearsQueueKeepsLedger(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	e := newTestEngine(t, clock, &fakeFeed{}, &fakeSink{})
	require.NoError(t, e.Enable())
	clock.Advance(time.Minute)

	require.True(t, e.tryAdmit(orderAt(1, start.Add(time.Second))))
	require.Equal(t, 1, e.queue.Len())

	require.NoError(t, e.Disable())

	st := e.Status()
	assert.False(t, st.Enabled)
	assert.Equal(t, 0, st.QueueDepth, "pending jobs dropped")
	assert.Equal(t, 1, st.ProcessedHits, "ledger survives disable")
}

func TestEnableStartsFreshEpoch(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	e := newTestEngine(t, clock, &fakeFeed{}, &fakeSink{})
	require.NoError(t, e.Enable())
	clock.Advance(time.Minute)

	require.True(t, e.tryAdmit(orderAt(1, start.Add(time.Second))))
	require.NoError(t, e.Disable())

	// re-enable: ledger empties, but pre-epoch orders stay ineligible
	require.NoError(t, e.Enable())
	st := e.Status()
	assert.Equal(t, 0, st.ProcessedHits)
	assert.False(t, e.tryAdmit(orderAt(1, start.Add(time.Second))), "created before the new epoch")
}

func TestReset(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	e := newTestEngine(t, clock, &fakeFeed{}, &fakeSink{})
	require.NoError(t, e.Enable())
	clock.Advance(time.Minute)
	require.True(t, e.tryAdmit(orderAt(1, start.Add(time.Second))))

	require.NoError(t, e.Reset())

	st := e.Status()
	assert.False(t, st.Enabled)
	assert.Zero(t, st.QueueDepth)
	assert.Zero(t, st.ProcessedHits)
	assert.Zero(t, st.LastPrintedID)
}

func TestPrintNowBypassesLedger(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	sk := &fakeSink{}
	e := newTestEngine(t, clock, &fakeFeed{}, sk)
	require.NoError(t, e.Enable())
	clock.Advance(time.Minute)

	order := orderAt(3, start.Add(time.Second))
	require.True(t, e.tryAdmit(order))

	// a manual reprint works even though the order is already processed
	require.NoError(t, e.PrintNow(context.Background(), "", order, ""))
	assert.Equal(t, 1, sk.writeCount())
}

func TestPrintNowRetriesTransientFailures(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sk := &fakeSink{errs: []error{
		&sink.PrintError{Code: sink.ErrCodeDeviceBusy, Device: "/dev/usb/lp0"},
	}}
	e := newTestEngine(t, newManualClock(start), &fakeFeed{}, sk)

	err := e.PrintNow(context.Background(), "", orderAt(1, start), "texto")
	require.NoError(t, err)
	assert.Equal(t, 2, sk.writeCount(), "busy then success")
}

func TestPrintNowDoesNotRetryFatalFailures(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sk := &fakeSink{errs: []error{
		&sink.PrintError{Code: sink.ErrCodePermissionDenied, Device: "/dev/usb/lp0"},
		&sink.PrintError{Code: sink.ErrCodePermissionDenied, Device: "/dev/usb/lp0"},
	}}
	e := newTestEngine(t, newManualClock(start), &fakeFeed{}, sk)

	err := e.PrintNow(context.Background(), "", orderAt(1, start), "texto")
	require.Error(t, err)
	assert.Equal(t, sink.ErrCodePermissionDenied, sink.CodeOf(err))
	assert.Equal(t, 1, sk.writeCount(), "fatal errors fail immediately")
}

func TestStateSurvivesRestart(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	clock := newManualClock(start)
	newEngine := func() *Engine {
		e, err := New(Options{
			Log:          quietLogger(),
			Feed:         &fakeFeed{},
			Sink:         &fakeSink{},
			Resolver:     fakeResolver{},
			Store:        store,
			Layout:       layout.Default,
			Clock:        clock,
			GracePeriod:  5 * time.Second,
			PollInterval: time.Hour,
		})
		require.NoError(t, err)
		e.SelectPrinter("/dev/usb/lp0")
		return e
	}

	first := newEngine()
	require.NoError(t, first.Enable())
	clock.Advance(10 * time.Second)
	require.True(t, first.tryAdmit(orderAt(1, start.Add(time.Second))))

	// a fresh engine over the same store must not re-admit
	second := newEngine()
	st := second.Status()
	assert.True(t, st.Enabled)
	assert.Equal(t, 1, st.ProcessedHits)

	clock.Advance(10 * time.Second)
	assert.False(t, second.tryAdmit(orderAt(1, start.Add(time.Second))))
}

func TestNotifyCoalesces(t *testing.T) {
	e := newTestEngine(t, newManualClock(time.Now()), &fakeFeed{}, &fakeSink{})
	e.Notify()
	e.Notify()
	e.Notify()
	assert.Len(t, e.wake, 1)
}
