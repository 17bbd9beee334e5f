package engine

import (
	"fmt"
	"slices"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/shopspring/decimal"
)

// InventoryPatch holds the fields UpdateInventoryItem may change. Nil fields
// are kept. CurrentStock goes through the same clamping and alerting as
// UpdateInventory.
type InventoryPatch struct {
	Name         *string
	Category     *string
	CurrentStock *int
	MinStock     *int
	MaxStock     *int
	ReorderPoint *int
	UnitPrice    *decimal.Decimal
	UnitCost     *decimal.Decimal
	IsAvailable  *bool
	Tags         []string
	Supplier     *model.Supplier
	Nutrition    *model.Nutrition
}

// UpdateInventory sets an item's stock level, clamped to [0, MaxStock].
type UpdateInventory struct {
	ItemID string
	Stock  int
}

// AddInventoryItem adds a new item. ID is assigned when empty.
type AddInventoryItem struct {
	Item model.InventoryItem
}

// UpdateInventoryItem patches an item.
type UpdateInventoryItem struct {
	ItemID string
	Patch  InventoryPatch
}

// RemoveInventoryItem deletes an item.
type RemoveInventoryItem struct {
	ItemID string
}

func (a UpdateInventory) apply(tx *txn) error {
	i := indexItem(tx.state.Inventory, a.ItemID)
	if i < 0 {
		return ErrNotFound
	}
	tx.setStock(i, a.Stock)
	tx.item = tx.state.Inventory[i]
	return nil
}

func (a AddInventoryItem) apply(tx *txn) error {
	it := a.Item
	if it.ID == "" {
		it.ID = tx.e.newID()
	} else if indexItem(tx.state.Inventory, it.ID) >= 0 {
		return fmt.Errorf("inventory item %s: %w", it.ID, ErrAlreadyExists)
	}
	it.MaxStock = max(it.MaxStock, 0)
	it.MinStock = max(it.MinStock, 0)
	it.CurrentStock = clampStock(it.CurrentStock, it.MaxStock)
	it.Tags = slices.Clone(it.Tags)
	it.LastUpdated = tx.now

	tx.state.Inventory = append(tx.inventory(), it)
	tx.markDirty(maskInventory)
	tx.item = it
	return nil
}

func (a UpdateInventoryItem) apply(tx *txn) error {
	i := indexItem(tx.state.Inventory, a.ItemID)
	if i < 0 {
		return ErrNotFound
	}
	p := a.Patch
	inv := tx.inventory()
	it := &inv[i]
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.MinStock != nil {
		it.MinStock = max(*p.MinStock, 0)
	}
	if p.MaxStock != nil {
		it.MaxStock = max(*p.MaxStock, 0)
	}
	if p.ReorderPoint != nil {
		it.ReorderPoint = *p.ReorderPoint
	}
	if p.UnitPrice != nil {
		it.UnitPrice = *p.UnitPrice
	}
	if p.UnitCost != nil {
		it.UnitCost = *p.UnitCost
	}
	if p.IsAvailable != nil {
		it.IsAvailable = *p.IsAvailable
	}
	if p.Tags != nil {
		it.Tags = slices.Clone(p.Tags)
	}
	if p.Supplier != nil {
		s := *p.Supplier
		it.Supplier = &s
	}
	if p.Nutrition != nil {
		n := *p.Nutrition
		n.Allergens = slices.Clone(n.Allergens)
		it.Nutrition = &n
	}
	it.LastUpdated = tx.now
	tx.markDirty(maskInventory)

	stock := it.CurrentStock
	if p.CurrentStock != nil {
		stock = *p.CurrentStock
	}
	tx.setStock(i, stock)
	tx.item = tx.state.Inventory[i]
	return nil
}

func (a RemoveInventoryItem) apply(tx *txn) error {
	i := indexItem(tx.state.Inventory, a.ItemID)
	if i < 0 {
		return ErrNotFound
	}
	tx.state.Inventory = slices.Delete(tx.inventory(), i, i+1)
	tx.markDirty(maskInventory)
	return nil
}

// setStock clamps stock into range, stores it and raises an alert when the
// item runs out or drops to its minimum.
func (tx *txn) setStock(i, stock int) {
	old := tx.state.Inventory[i].CurrentStock
	stock = clampStock(stock, tx.state.Inventory[i].MaxStock)
	if stock == old {
		return
	}

	inv := tx.inventory()
	it := &inv[i]
	it.CurrentStock = stock
	it.LastUpdated = tx.now
	tx.markDirty(maskInventory)

	if !tx.state.Settings.LowStockAlerts {
		return
	}
	switch {
	case stock == 0:
		tx.notify(model.Notification{
			Type:     enum.NotificationInventory,
			Title:    "Out of stock",
			Message:  fmt.Sprintf("%s is out of stock", it.Name),
			Priority: enum.PriorityCritical,
			Action:   inventoryAction(it.ID),
			Tags:     []string{"inventory", "out-of-stock", it.ID},
		})
	case stock <= it.MinStock && old > it.MinStock:
		tx.notify(model.Notification{
			Type:     enum.NotificationInventory,
			Title:    "Low stock",
			Message:  fmt.Sprintf("%s is down to %d (minimum %d)", it.Name, stock, it.MinStock),
			Priority: enum.PriorityHigh,
			Action:   inventoryAction(it.ID),
			Tags:     []string{"inventory", "low-stock", it.ID},
		})
	}
}

func clampStock(stock, maxStock int) int {
	return min(max(stock, 0), maxStock)
}

func inventoryAction(id string) *model.NotificationAction {
	return &model.NotificationAction{Label: "Restock", Target: "/inventory/" + id}
}

// UpdateInventory sets an item's stock, clamped to [0, MaxStock].
func (e *Engine) UpdateInventory(id string, stock int) {
	e.run(UpdateInventory{ItemID: id, Stock: stock})
}

// AddInventoryItem adds an item and returns it as stored.
func (e *Engine) AddInventoryItem(it model.InventoryItem) model.InventoryItem {
	return e.run(AddInventoryItem{Item: it}).item
}

// UpdateInventoryItem patches an item.
func (e *Engine) UpdateInventoryItem(id string, p InventoryPatch) {
	e.run(UpdateInventoryItem{ItemID: id, Patch: p})
}

// RemoveInventoryItem deletes an item.
func (e *Engine) RemoveInventoryItem(id string) {
	e.run(RemoveInventoryItem{ItemID: id})
}
