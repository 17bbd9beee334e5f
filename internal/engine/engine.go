// Package engine holds the authoritative in-memory state of a store's
// operations dashboard and is the only component allowed to change it.
//
// Every mutation is expressed as an Action. The engine applies actions one
// at a time under a single writer lock, rebuilds the derived indices that
// depend on the touched collections, lets the notification dispatcher add
// alerts, and then atomically publishes the resulting Snapshot to readers
// and subscribers.
//
// Thread-safety model:
//   - State(), Subscribe(): safe from any goroutine, never block on writers
//   - Dispatch() and the named operations: safe from any goroutine, serialized
//   - Connect(), Disconnect(): serialized with each other
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/clock"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/kiwari-pos/opsdash/internal/scheduler"
)

const (
	// DefaultSyncInterval is the background refresh cadence.
	DefaultSyncInterval = 30 * time.Second

	// DefaultNewCustomerWindow is how long a customer counts as new.
	DefaultNewCustomerWindow = 7 * 24 * time.Hour
)

// Engine is the single-writer state engine for one store.
type Engine struct {
	name   string
	clock  clock.Clock
	logger *slog.Logger
	loader Loader
	feed   SalesFeed
	policy TransitionPolicy
	newID  func() string

	interval          time.Duration
	newCustomerWindow time.Duration

	mu    sync.Mutex // single writer
	state atomic.Pointer[Snapshot]

	subMu   sync.RWMutex
	subs    map[uint64]chan *Snapshot
	nextSub uint64

	lifeMu  sync.Mutex // serializes Connect and Disconnect
	refresh *scheduler.Handle
	syncing atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithName labels the engine in log output (usually the store id).
func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the structured logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithLoader sets the source of full snapshot loads used by Connect and
// SyncData.
func WithLoader(l Loader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithSalesFeed sets the generator of periodic sales updates.
func WithSalesFeed(f SalesFeed) Option {
	return func(e *Engine) { e.feed = f }
}

// WithTransitionPolicy sets which order status changes are accepted.
func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithSyncInterval sets the background refresh cadence.
func WithSyncInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithNewCustomerWindow sets the trailing window for the new-customer index.
func WithNewCustomerWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.newCustomerWindow = d
		}
	}
}

// WithIDGenerator replaces the id generator (UUIDv7 by default).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine holding an empty, offline snapshot. The caller owns
// its lifecycle: call Connect to load data and start the background
// refresh, and Disconnect to stop it.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:             clock.Real(),
		logger:            slog.New(slog.DiscardHandler),
		feed:              HoldFeed{},
		policy:            PermissiveTransitions,
		newID:             func() string { return uuid.Must(uuid.NewV7()).String() },
		interval:          DefaultSyncInterval,
		newCustomerWindow: DefaultNewCustomerWindow,
		subs:              make(map[uint64]chan *Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state.Store(emptySnapshot())
	return e
}

// State returns the current snapshot. The result must not be modified.
func (e *Engine) State() *Snapshot {
	return e.state.Load()
}

// Dispatch applies a single action as one atomic transition.
//
// A nil error means the action was applied (or was a harmless no-op such as
// marking an already-read notification). ErrNotFound and
// ErrIllegalTransition report that nothing changed.
func (e *Engine) Dispatch(a Action) error {
	_, err := e.apply(a)
	return err
}

// Result holds the entity created by an action, where it has one.
type Result struct {
	Order        model.Order
	Item         model.InventoryItem
	Customer     model.Customer
	Notification model.Notification
}

// Apply is Dispatch for callers that also need the created entity.
func (e *Engine) Apply(a Action) (Result, error) {
	tx, err := e.apply(a)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Order:        tx.order,
		Item:         tx.item,
		Customer:     tx.customer,
		Notification: tx.notification,
	}, nil
}

// apply runs a under the writer lock and publishes the result.
func (e *Engine) apply(a Action) (*txn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.state.Load()
	tx := newTxn(prev, e)

	if err := a.apply(tx); err != nil {
		e.logger.Debug("action rejected",
			"store", e.name,
			"action", actionName(a),
			"error", err,
		)
		return tx, err
	}
	if !tx.touched {
		return tx, nil
	}

	tx.refreshViews()
	next := tx.state
	next.Version = prev.Version + 1
	e.state.Store(&next)

	e.logger.Debug("transition committed",
		"store", e.name,
		"action", actionName(a),
		"version", next.Version,
	)
	e.broadcast(&next)
	return tx, nil
}
