package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/clock"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/fixture"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/kiwari-pos/opsdash/internal/ws"
)

// --- Mocks ---

type sentEvent struct {
	storeID uuid.UUID
	event   ws.Event
}

type mockHub struct {
	events chan sentEvent
}

func newMockHub() *mockHub {
	return &mockHub{events: make(chan sentEvent, 64)}
}

func (m *mockHub) BroadcastToStore(storeID uuid.UUID, event ws.Event) {
	select {
	case m.events <- sentEvent{storeID: storeID, event: event}:
	default:
	}
}

var epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, hub Broadcaster, loaders LoaderFunc) (*Registry, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(epoch)
	r := NewRegistry(hub, loaders, Options{
		SyncInterval: time.Minute,
		Clock:        clk,
	})
	t.Cleanup(r.Close)
	return r, clk
}

func demoLoaders(clk clock.Clock) LoaderFunc {
	return func(uuid.UUID) engine.Loader { return fixture.NewLoader(clk, 0) }
}

// --- Tests ---

func TestRegistryGet_ConnectsOnFirstUse(t *testing.T) {
	hub := newMockHub()
	clk := clock.Fake(epoch)
	r := NewRegistry(hub, demoLoaders(clk), Options{Clock: clk})
	t.Cleanup(r.Close)

	storeID := uuid.New()
	e, err := r.Get(context.Background(), storeID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !e.Connected() {
		t.Fatal("engine should be connected after first Get")
	}
	if len(e.State().Inventory) == 0 {
		t.Fatal("demo dataset not loaded")
	}

	again, err := r.Get(context.Background(), storeID)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if again != e {
		t.Error("second Get should return the same engine")
	}
	if got, ok := r.Lookup(storeID); !ok || got != e {
		t.Error("Lookup should find the opened store")
	}
	if _, ok := r.Lookup(uuid.New()); ok {
		t.Error("Lookup should not open unknown stores")
	}
	if n := len(r.Stores()); n != 1 {
		t.Errorf("expected 1 open store, got %d", n)
	}
}

func TestRegistryGet_ConcurrentCallersShareLoad(t *testing.T) {
	var loads atomic.Int32
	loaders := func(uuid.UUID) engine.Loader {
		return engine.LoaderFunc(func(context.Context) (engine.Dataset, error) {
			loads.Add(1)
			return engine.Dataset{}, nil
		})
	}
	r, _ := newTestRegistry(t, newMockHub(), loaders)

	storeID := uuid.New()
	var wg sync.WaitGroup
	engines := make([]*engine.Engine, 8)
	for i := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := r.Get(context.Background(), storeID)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			engines[i] = e
		}()
	}
	wg.Wait()

	for _, e := range engines {
		if e != engines[0] {
			t.Fatal("callers got different engines for one store")
		}
	}
	if n := loads.Load(); n != 1 {
		t.Errorf("expected one loader per store, got %d", n)
	}
}

func TestRegistry_ForwardsSnapshots(t *testing.T) {
	hub := newMockHub()
	r, _ := newTestRegistry(t, hub, nil)

	storeID := uuid.New()
	e, err := r.Get(context.Background(), storeID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.AddNotification(engineNotification("hello"))

	deadline := time.After(time.Second)
	for {
		select {
		case got := <-hub.events:
			if got.storeID != storeID {
				t.Fatalf("event for wrong store: %s", got.storeID)
			}
			if got.event.Type != ws.EventUpdated {
				t.Fatalf("expected %q, got %q", ws.EventUpdated, got.event.Type)
			}
			var snap engine.Snapshot
			if err := json.Unmarshal(got.event.Payload, &snap); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if snap.Version != got.event.Version {
				t.Fatalf("event version %d does not match payload %d", got.event.Version, snap.Version)
			}
			if len(snap.Notifications) == 1 && snap.UnreadCount == 1 {
				return
			}
		case <-deadline:
			t.Fatal("notification snapshot was not forwarded")
		}
	}
}

func TestRegistry_StoresAreIsolated(t *testing.T) {
	r, _ := newTestRegistry(t, newMockHub(), nil)

	a, _ := r.Get(context.Background(), uuid.New())
	b, _ := r.Get(context.Background(), uuid.New())
	a.AddNotification(engineNotification("only a"))

	if len(b.State().Notifications) != 0 {
		t.Error("store b should not see store a's notification")
	}
}

func TestRegistry_StrictTransitions(t *testing.T) {
	clk := clock.Fake(epoch)
	r := NewRegistry(newMockHub(), nil, Options{Clock: clk, StrictTransitions: true})
	t.Cleanup(r.Close)

	e, _ := r.Get(context.Background(), uuid.New())
	o := e.CreateOrder(engine.OrderDraft{CustomerName: "Walk-in"})
	err := e.Dispatch(engine.UpdateOrderStatus{OrderID: o.ID, Status: enum.OrderStatusCompleted})
	if !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestRegistryCurrentState(t *testing.T) {
	clk := clock.Fake(epoch)
	r := NewRegistry(newMockHub(), demoLoaders(clk), Options{Clock: clk})
	t.Cleanup(r.Close)

	event, err := r.CurrentState(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if event.Type != ws.EventSnapshot {
		t.Errorf("expected %q, got %q", ws.EventSnapshot, event.Type)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(event.Payload, &snap); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !snap.Connection.IsConnected {
		t.Error("snapshot should report a connected store")
	}
}

func TestRegistryClose(t *testing.T) {
	clk := clock.Fake(epoch)
	r := NewRegistry(newMockHub(), nil, Options{Clock: clk})

	e, _ := r.Get(context.Background(), uuid.New())
	r.Close()
	r.Close()

	if e.Connected() {
		t.Error("engine should be disconnected after Close")
	}
	if e.Subscribers() != 0 {
		t.Error("forwarder subscription should be closed")
	}
	if _, err := r.Get(context.Background(), uuid.New()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func engineNotification(title string) model.Notification {
	return model.Notification{Title: title, Priority: enum.PriorityLow}
}
