package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/kiwari-pos/opsdash/internal/scheduler"
)

// Dataset is a full load of a store's data. Nil collections are left as
// they are in the current snapshot.
type Dataset struct {
	Orders        []model.Order         `json:"orders"`
	Inventory     []model.InventoryItem `json:"inventory"`
	Customers     []model.Customer      `json:"customers"`
	Notifications []model.Notification  `json:"notifications"`
	Sales         *model.SalesSummary   `json:"sales,omitempty"`
	Settings      *model.Settings       `json:"settings,omitempty"`
}

// Loader fetches a full dataset from the external data source.
type Loader interface {
	Load(ctx context.Context) (Dataset, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Dataset, error)

func (f LoaderFunc) Load(ctx context.Context) (Dataset, error) { return f(ctx) }

type loadDataset struct {
	ds      *Dataset // nil only stamps LastSync
	connect bool
}

type setConnection struct {
	status  enum.ConnectionStatus
	quality enum.ConnectionQuality
}

type setSyncing struct {
	on bool
}

// degrade marks a connected engine's data source as unreliable.
type degrade struct{}

type applyTick struct{}

func (a loadDataset) apply(tx *txn) error {
	if a.ds != nil {
		tx.replace(*a.ds)
	}
	c := &tx.state.Connection
	if a.connect {
		c.Status = enum.ConnectionConnected
		c.IsConnected = true
	}
	if c.IsConnected {
		c.Quality = enum.QualityExcellent
	}
	c.LastSync = tx.now
	tx.touch()
	return nil
}

func (a setConnection) apply(tx *txn) error {
	c := &tx.state.Connection
	if a.status != "" {
		c.Status = a.status
		c.IsConnected = a.status == enum.ConnectionConnected
	}
	if a.quality != "" {
		c.Quality = a.quality
	}
	tx.touch()
	return nil
}

func (a setSyncing) apply(tx *txn) error {
	tx.state.Connection.SyncInProgress = a.on
	tx.touch()
	return nil
}

func (degrade) apply(tx *txn) error {
	if !tx.state.Connection.IsConnected {
		return nil
	}
	tx.state.Connection.Quality = enum.QualityPoor
	tx.touch()
	return nil
}

func (applyTick) apply(tx *txn) error {
	sales := tx.e.feed.Next(tx.now, &tx.state)
	sales.UpdatedAt = tx.now
	tx.state.Sales = sales
	tx.state.Connection.LastSync = tx.now
	tx.pruneExpired()
	// The new-customer window moves with the clock.
	tx.markDirty(maskCustomers)
	return nil
}

// replace swaps in every non-nil collection of ds and recomputes what
// depends on it.
func (tx *txn) replace(ds Dataset) {
	if ds.Orders != nil {
		orders := slices.Clone(ds.Orders)
		for i := range orders {
			// Loaded data is not validated upstream; an unknown status
			// would leave the order outside every order index.
			if !orders[i].Status.Valid() {
				orders[i].Status = enum.OrderStatusPending
			}
		}
		tx.state.Orders = orders
		tx.cloned |= maskOrders
		tx.markDirty(maskOrders)
	}
	if ds.Inventory != nil {
		inv := slices.Clone(ds.Inventory)
		for i := range inv {
			inv[i].MaxStock = max(inv[i].MaxStock, 0)
			inv[i].CurrentStock = clampStock(inv[i].CurrentStock, inv[i].MaxStock)
		}
		tx.state.Inventory = inv
		tx.cloned |= maskInventory
		tx.markDirty(maskInventory)
	}
	if ds.Customers != nil {
		tx.state.Customers = slices.Clone(ds.Customers)
		tx.cloned |= maskCustomers
		tx.markDirty(maskCustomers)
	}
	if ds.Notifications != nil {
		tx.state.Notifications = slices.Clone(ds.Notifications)
		tx.cloned |= maskNotifications
		tx.state.UnreadCount, tx.state.CriticalAlertIDs = notificationViews(tx.state.Notifications)
		tx.critCOW = true
		tx.touch()
	}
	if ds.Sales != nil {
		tx.state.Sales = *ds.Sales
		tx.touch()
	}
	if ds.Settings != nil {
		tx.state.Settings = *ds.Settings
		tx.touch()
	}
}

// Connect loads the initial dataset and starts the background refresh.
// Failure to load leaves the engine offline; it is logged, not returned.
// Calling Connect on a connected engine does nothing.
func (e *Engine) Connect(ctx context.Context) {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.refresh != nil {
		return
	}
	e.run(setConnection{status: enum.ConnectionConnecting})

	load := loadDataset{connect: true}
	if e.loader != nil {
		ds, err := e.loader.Load(ctx)
		if err != nil {
			e.logger.Warn("initial load failed", "store", e.name, "error", err)
			e.run(setConnection{status: enum.ConnectionOffline, quality: enum.QualityOffline})
			return
		}
		load.ds = &ds
	}
	e.run(load)

	e.refresh = scheduler.Every(e.clock, e.interval, e.tick)
	e.logger.Info("connected", "store", e.name, "interval", e.interval)
}

// Disconnect stops the background refresh and marks the engine offline.
// No refresh runs after Disconnect returns.
func (e *Engine) Disconnect() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.refresh != nil {
		e.refresh.Stop()
		e.refresh = nil
		e.logger.Info("disconnected", "store", e.name)
	}
	e.run(setConnection{status: enum.ConnectionOffline, quality: enum.QualityOffline})
}

// Connected reports whether the background refresh is running.
func (e *Engine) Connected() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.refresh != nil
}

// SyncData performs a full reload. Only one sync runs at a time; a second
// caller gets ErrSyncInProgress. A failed load marks the connection poor
// and is returned.
func (e *Engine) SyncData(ctx context.Context) error {
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer func() {
		e.run(setSyncing{on: false})
		e.syncing.Store(false)
	}()
	e.run(setSyncing{on: true})

	start := e.clock.Now()
	load := loadDataset{}
	if e.loader != nil {
		ds, err := e.loader.Load(ctx)
		if err != nil {
			e.run(degrade{})
			return fmt.Errorf("sync data: %w", err)
		}
		load.ds = &ds
	}
	e.run(load)
	e.logger.Debug("sync complete", "store", e.name, "took", e.clock.Now().Sub(start).Round(time.Millisecond))
	return nil
}

func (e *Engine) tick(time.Time) {
	e.run(applyTick{})
}
