// Package engine decides which orders get printed and pushes them through
// the sink exactly once per activation epoch. Two detectors feed it, a
// WebSocket push and a periodic poll, and both funnel into the same
// admission gate so redundancy never causes duplicate paper.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesa-livre/print-agent/internal/feed"
	"github.com/mesa-livre/print-agent/internal/layout"
	"github.com/mesa-livre/print-agent/internal/model"
	"github.com/mesa-livre/print-agent/internal/render"
	"github.com/mesa-livre/print-agent/internal/sink"
	"github.com/mesa-livre/print-agent/internal/state"
)

const (
	// DefaultGracePeriod is the window after startup during which nothing is
	// auto-admitted, so a restart with a backlog of unprinted orders does
	// not dump paper on the counter.
	DefaultGracePeriod = 5 * time.Second

	// DefaultPollInterval is the reconciliation fallback cadence when no
	// push notifications arrive.
	DefaultPollInterval = 15 * time.Second
)

// Resolver turns a requested printer path into a usable transport.
type Resolver interface {
	Resolve(requested string) model.Transport
}

// Options wires the engine's collaborators together.
type Options struct {
	Log          *logrus.Logger
	Feed         feed.Feed
	Sink         sink.Sink
	Resolver     Resolver
	Store        *state.Store
	Layout       func() *layout.Layout
	Clock        Clock
	GracePeriod  time.Duration
	PollInterval time.Duration
}

// Engine is the reconciliation engine. All admission decisions happen under
// one mutex; all physical writes happen under another, so at most one
// receipt is on the wire at a time.
type Engine struct {
	log      *logrus.Logger
	feed     feed.Feed
	sink     sink.Sink
	resolver Resolver
	store    *state.Store
	layout   func() *layout.Layout
	clock    Clock

	grace        time.Duration
	pollInterval time.Duration

	startedAt time.Time

	mu          sync.Mutex
	enabled     bool
	activatedAt time.Time
	processed   map[int64]bool
	selected    string
	lastPrinted int64
	lastError   string

	printMu sync.Mutex

	queue *jobQueue
	wake  chan struct{}
}

func New(opts Options) (*Engine, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	e := &Engine{
		log:          opts.Log,
		feed:         opts.Feed,
		sink:         opts.Sink,
		resolver:     opts.Resolver,
		store:        opts.Store,
		layout:       opts.Layout,
		clock:        opts.Clock,
		grace:        opts.GracePeriod,
		pollInterval: opts.PollInterval,
		startedAt:    opts.Clock.Now(),
		processed:    make(map[int64]bool),
		queue:        newJobQueue(),
		wake:         make(chan struct{}, 1),
	}

	// Re-hydrate the activation epoch and processed ledger so a restart
	// does not reprint anything.
	if e.store != nil {
		enabled, activatedAt, err := e.store.Epoch()
		if err != nil {
			return nil, err
		}
		processed, err := e.store.Processed()
		if err != nil {
			return nil, err
		}
		e.enabled = enabled
		e.activatedAt = activatedAt
		e.processed = processed
	}
	return e, nil
}

// Run starts the drain worker and the polling detector, and blocks until ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) {
	go e.drain(ctx)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	defer e.queue.Close()

	// pick up anything already waiting at startup
	e.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reconcile(ctx)
		case <-e.wake:
			e.reconcile(ctx)
		}
	}
}

// Notify wakes the reconciliation loop. Safe to call from any goroutine;
// coalesces bursts into a single cycle.
func (e *Engine) Notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

/// Enable starts a new activation epoch: only orders created strictly after
// this moment are eligible, and the processed ledger starts empty.
func (e *Engine) Enable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if e.store != nil {
		if err := e.store.SetEpoch(true, now); err != nil {
			return err
		}
		if err := e.store.ClearProcessed(); err != nil {
			return err
		}
	}
	e.enabled = true
	e.activatedAt = now
	e.processed = make(map[int64]bool)
	e.queue.Clear()
	e.lastError = ""
	e.log.WithField("activatedAt", now.Format(time.RFC3339)).Info("Auto-print enabled")
	return nil
}

// Disable stops admissions and drops the pending queue. Processed marks are
// kept: orders already sent to the printer stay sent.
func (e *Engine) Disable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SetEpoch(false, e.activatedAt); err != nil {
			return err
		}
	}
	e.enabled = false
	dropped := e.queue.Clear()
	if dropped > 0 {
		e.log.WithField("dropped", dropped).Info("Pending print jobs discarded on disable")
	}
	e.log.Info("Auto-print disabled")
	return nil
}

// Reset wipes all durable state: epoch, ledger, everything. The next Enable
// starts from scratch.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store != nil {
		if err := e.store.Reset(); err != nil {
			return err
		}
	}
	e.enabled = false
	e.activatedAt = time.Time{}
	e.processed = make(map[int64]bool)
	e.queue.Clear()
	e.lastPrinted = 0
	e.lastError = ""
	e.log.Info("Auto-print state reset")
	return nil
}

// SelectPrinter records the operator's preferred device path. An empty path
// means "use the fallback list".
func (e *Engine) SelectPrinter(path string) {
	e.mu.Lock()
	e.selected = path
	e.mu.Unlock()
}

// Status is a point-in-time snapshot for the HTTP surface.
type Status struct {
	Enabled       bool      `json:"enabled"`
	ActivatedAt   time.Time `json:"activatedAt,omitempty"`
	QueueDepth    int       `json:"queueDepth"`
	ProcessedHits int       `json:"processedCount"`
	LastPrintedID int64     `json:"lastPrintedId,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
	Printer       string    `json:"printer,omitempty"`
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Enabled:       e.enabled,
		ActivatedAt:   e.activatedAt,
		QueueDepth:    e.queue.Len(),
		ProcessedHits: len(e.processed),
		LastPrintedID: e.lastPrinted,
		LastError:     e.lastError,
		Printer:       e.selected,
	}
}

// reconcile runs one detection cycle: list orders, admit whatever passes the
// gate. Feed errors are logged and retried on the next cycle.
func (e *Engine) reconcile(ctx context.Context) {
	e.mu.Lock()
	enabled := e.enabled
	e.mu.Unlock()
	if !enabled {
		return
	}

	orders, err := e.feed.ListOrders(ctx)
	if err != nil {
		e.log.WithError(err).Warn("Order listing failed, will retry")
		return
	}
	for _, order := range orders {
		e.tryAdmit(order)
	}
}

// tryAdmit applies the admission gate and, when it passes, marks the order
// processed and enqueues it under the same lock. Marking before enqueueing
// is what makes concurrent detectors safe: the second detector sees the mark
// and stops.
func (e *Engine) tryAdmit(order model.Order) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled || order.Printed {
		return false
	}
	if e.selected == "" {
		// enabled but not armed: no printer chosen yet
		return false
	}
	if e.clock.Now().Sub(e.startedAt) < e.grace {
		// startup grace window: a restarted agent must not bulk-print
		// whatever backlog the first fetch returns
		return false
	}
	if e.processed[order.ID] {
		return false
	}
	if !order.Complete() {
		e.log.WithField("orderId", order.ID).Debug("Order incomplete, skipping")
		return false
	}
	if !order.CreatedAt.After(e.activatedAt) {
		// predates this activation epoch
		return false
	}

	e.processed[order.ID] = true
	if e.store != nil {
		if err := e.store.MarkProcessed(order.ID, e.clock.Now()); err != nil {
			e.log.WithField("orderId", order.ID).WithError(err).Error("Failed to persist processed mark")
		}
	}
	e.queue.Push(order)
	e.log.WithField("orderId", order.ID).Info("Order admitted for printing")
	return true
}

// drain pops admitted jobs one at a time and prints them. A failed job is
// dropped, not requeued: its id stays in the processed ledger and the
// failure is surfaced through status. Re-printing is the operator's call.
func (e *Engine) drain(ctx context.Context) {
	for {
		job, ok := e.queue.Pop()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		e.printJob(ctx, job)
	}
}

func (e *Engine) printJob(ctx context.Context, order model.Order) {
	e.printMu.Lock()
	defer e.printMu.Unlock()

	e.mu.Lock()
	requested := e.selected
	e.mu.Unlock()

	transport := e.resolver.Resolve(requested)
	text := render.Render(order, e.layout(), nil)

	if err := e.sink.Write(ctx, transport, text); err != nil {
		e.mu.Lock()
		e.lastError = string(sink.CodeOf(err))
		e.mu.Unlock()
		e.log.WithField("orderId", order.ID).WithError(err).Error("Print failed, job dropped")
		return
	}

	e.mu.Lock()
	e.lastPrinted = order.ID
	e.lastError = ""
	e.mu.Unlock()
	e.log.WithField("orderId", order.ID).Info("Order printed")

	if err := e.feed.MarkPrinted(ctx, order.ID); err != nil {
		// the paper is out; the backend flag catches up on the next sync
		e.log.WithField("orderId", order.ID).WithError(err).Warn("Failed to mark order printed on backend")
	}
}

// PrintNow performs a manual, operator-initiated print. It shares the print
// lock with the drain worker but bypasses the processed ledger entirely, and
// retries transient failures a bounded number of times.
func (e *Engine) PrintNow(ctx context.Context, printerPath string, order model.Order, text string) error {
	e.printMu.Lock()
	defer e.printMu.Unlock()

	if printerPath == "" {
		e.mu.Lock()
		printerPath = e.selected
		e.mu.Unlock()
	}
	transport := e.resolver.Resolve(printerPath)
	if text == "" {
		text = render.Render(order, e.layout(), nil)
	}
	return sink.WriteWithRetry(ctx, e.sink, transport, text, sink.DefaultRetryPolicy)
}
