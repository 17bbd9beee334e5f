package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/clock"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/ws"
)

// loadTimeout bounds the initial load of a store that is opened lazily.
const loadTimeout = 15 * time.Second

// ErrClosed is returned once the registry has been shut down.
var ErrClosed = errors.New("registry closed")

// Broadcaster pushes events to the dashboards watching a store.
// Satisfied by *ws.Hub; narrow interface for testability.
type Broadcaster interface {
	BroadcastToStore(storeID uuid.UUID, event ws.Event)
}

// LoaderFunc returns the snapshot source for one store.
type LoaderFunc func(storeID uuid.UUID) engine.Loader

// Options configures the engines the registry creates.
type Options struct {
	SyncInterval      time.Duration
	NewCustomerWindow time.Duration
	StrictTransitions bool
	Clock             clock.Clock
	Logger            *slog.Logger
}

type store struct {
	engine *engine.Engine
	sub    *engine.Subscription
	ready  chan struct{} // closed once the initial Connect returned
}

// Registry owns one engine per store. Engines are created and connected on
// first use, and every snapshot they commit is forwarded to the hub.
type Registry struct {
	opts      Options
	hub       Broadcaster
	newLoader LoaderFunc

	mu     sync.Mutex
	stores map[uuid.UUID]*store
	closed bool
	wg     sync.WaitGroup
}

// NewRegistry creates a Registry. newLoader may be nil, in which case
// engines start empty.
func NewRegistry(hub Broadcaster, newLoader LoaderFunc, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		opts:      opts,
		hub:       hub,
		newLoader: newLoader,
		stores:    make(map[uuid.UUID]*store),
	}
}

// Get returns the engine for storeID, creating and connecting it on first
// use. Concurrent callers for a new store wait for the same initial load.
func (r *Registry) Get(ctx context.Context, storeID uuid.UUID) (*engine.Engine, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	s, ok := r.stores[storeID]
	if !ok {
		s = r.open(storeID)
		r.stores[storeID] = s
	}
	r.mu.Unlock()

	if !ok {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		s.engine.Connect(loadCtx)
		cancel()
		close(s.ready)
	}

	select {
	case <-s.ready:
		return s.engine, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns the engine for storeID if it has been opened.
func (r *Registry) Lookup(storeID uuid.UUID) (*engine.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[storeID]
	if !ok {
		return nil, false
	}
	return s.engine, true
}

// Stores returns the ids of every open store.
func (r *Registry) Stores() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	return ids
}

// CurrentState implements ws.StateSource.
func (r *Registry) CurrentState(ctx context.Context, storeID uuid.UUID) (ws.Event, error) {
	e, err := r.Get(ctx, storeID)
	if err != nil {
		return ws.Event{}, err
	}
	return snapshotEvent(ws.EventSnapshot, e.State())
}

// Close disconnects every engine and waits for the forwarders to drain.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stores := r.stores
	r.stores = make(map[uuid.UUID]*store)
	r.mu.Unlock()

	for _, s := range stores {
		<-s.ready
		s.engine.Disconnect()
		s.sub.Close()
	}
	r.wg.Wait()
}

// open builds the engine for storeID and starts forwarding its snapshots.
// Called with r.mu held.
func (r *Registry) open(storeID uuid.UUID) *store {
	opts := []engine.Option{
		engine.WithName(storeID.String()),
		engine.WithClock(r.opts.Clock),
		engine.WithLogger(r.opts.Logger),
		engine.WithSyncInterval(r.opts.SyncInterval),
		engine.WithNewCustomerWindow(r.opts.NewCustomerWindow),
		engine.WithSalesFeed(engine.NewDriftFeed(binary.BigEndian.Uint64(storeID[:8]))),
	}
	if r.opts.StrictTransitions {
		opts = append(opts, engine.WithTransitionPolicy(engine.StrictTransitions))
	}
	if r.newLoader != nil {
		opts = append(opts, engine.WithLoader(r.newLoader(storeID)))
	}

	e := engine.New(opts...)
	s := &store{engine: e, sub: e.Subscribe(), ready: make(chan struct{})}

	r.wg.Add(1)
	go r.forward(storeID, s.sub)

	r.opts.Logger.Info("store opened", "store", storeID.String())
	return s
}

func (r *Registry) forward(storeID uuid.UUID, sub *engine.Subscription) {
	defer r.wg.Done()
	for snap := range sub.C {
		event, err := snapshotEvent(ws.EventUpdated, snap)
		if err != nil {
			r.opts.Logger.Error("encode snapshot", "store", storeID.String(), "error", err)
			continue
		}
		r.hub.BroadcastToStore(storeID, event)
	}
}

func snapshotEvent(kind string, snap *engine.Snapshot) (ws.Event, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return ws.Event{}, fmt.Errorf("encode snapshot v%d: %w", snap.Version, err)
	}
	return ws.Event{Type: kind, Version: snap.Version, Payload: payload}, nil
}
