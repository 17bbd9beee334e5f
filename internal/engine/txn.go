package engine

import (
	"slices"
	"time"

	"github.com/kiwari-pos/opsdash/internal/model"
)

type collectionMask uint8

const (
	maskOrders collectionMask = 1 << iota
	maskInventory
	maskCustomers
	maskNotifications
)

// txn is the working copy of one transition. Base slices are shared with the
// previous snapshot until the first write, which clones them.
type txn struct {
	e     *Engine
	now   time.Time
	state Snapshot

	touched bool
	dirty   collectionMask // base collections whose indices need a rebuild
	cloned  collectionMask
	critCOW bool

	// Outputs for the named operations.
	order        model.Order
	item         model.InventoryItem
	customer     model.Customer
	notification model.Notification
}

func newTxn(prev *Snapshot, e *Engine) *txn {
	return &txn{
		e:     e,
		now:   e.clock.Now(),
		state: *prev,
	}
}

func (tx *txn) orders() []model.Order {
	if tx.cloned&maskOrders == 0 {
		tx.state.Orders = slices.Clone(tx.state.Orders)
		tx.cloned |= maskOrders
	}
	tx.touched = true
	return tx.state.Orders
}

func (tx *txn) inventory() []model.InventoryItem {
	if tx.cloned&maskInventory == 0 {
		tx.state.Inventory = slices.Clone(tx.state.Inventory)
		tx.cloned |= maskInventory
	}
	tx.touched = true
	return tx.state.Inventory
}

func (tx *txn) customers() []model.Customer {
	if tx.cloned&maskCustomers == 0 {
		tx.state.Customers = slices.Clone(tx.state.Customers)
		tx.cloned |= maskCustomers
	}
	tx.touched = true
	return tx.state.Customers
}

func (tx *txn) notifications() []model.Notification {
	if tx.cloned&maskNotifications == 0 {
		tx.state.Notifications = slices.Clone(tx.state.Notifications)
		tx.cloned |= maskNotifications
	}
	tx.touched = true
	return tx.state.Notifications
}

func (tx *txn) criticalIDs() []string {
	if !tx.critCOW {
		tx.state.CriticalAlertIDs = slices.Clone(tx.state.CriticalAlertIDs)
		tx.critCOW = true
	}
	return tx.state.CriticalAlertIDs
}

// markDirty schedules an index rebuild for the given base collections.
func (tx *txn) markDirty(m collectionMask) {
	tx.dirty |= m
	tx.touched = true
}

// touch records a change that affects no base collection (sales, settings,
// connection metadata).
func (tx *txn) touch() {
	tx.touched = true
}
