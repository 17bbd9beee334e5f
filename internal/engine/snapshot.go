package engine

import (
	"time"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// Connection is the lifecycle metadata carried in every snapshot.
type Connection struct {
	Status         enum.ConnectionStatus  `json:"status"`
	IsConnected    bool                   `json:"is_connected"`
	Quality        enum.ConnectionQuality `json:"connection_quality"`
	LastSync       time.Time              `json:"last_sync"`
	SyncInProgress bool                   `json:"sync_in_progress"`
}

// Snapshot is the complete state of one store at one point in time.
//
// Snapshots are immutable once published: every transition builds a new one
// and swaps it in. Slices are shared between consecutive snapshots, so
// callers must treat everything reachable from a Snapshot as read-only.
//
// Derived indices hold entity ids. Membership of an order only depends on
// its status, so an order whose other fields change keeps a valid index
// entry without a rebuild.
type Snapshot struct {
	Version uint64 `json:"version"`

	Orders        []model.Order         `json:"orders"`
	Inventory     []model.InventoryItem `json:"inventory"`
	Customers     []model.Customer      `json:"customers"`
	Notifications []model.Notification  `json:"notifications"`
	Sales         model.SalesSummary    `json:"sales"`
	Settings      model.Settings        `json:"settings"`

	PendingOrderIDs   []string `json:"pending_orders"`
	ActiveOrderIDs    []string `json:"active_orders"`
	CompletedOrderIDs []string `json:"completed_orders"`
	LowStockIDs       []string `json:"low_stock_items"`
	OutOfStockIDs     []string `json:"out_of_stock_items"`
	VIPCustomerIDs    []string `json:"vip_customers"`
	NewCustomerIDs    []string `json:"new_customers"`
	CriticalAlertIDs  []string `json:"critical_alerts"`
	UnreadCount       int      `json:"unread_count"`

	Connection Connection `json:"connection"`
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Settings: model.DefaultSettings(),
		Connection: Connection{
			Status:  enum.ConnectionOffline,
			Quality: enum.QualityOffline,
		},
	}
}

// Order returns the order with the given id.
func (s *Snapshot) Order(id string) (model.Order, bool) {
	if i := indexOrder(s.Orders, id); i >= 0 {
		return s.Orders[i], true
	}
	return model.Order{}, false
}

// InventoryItem returns the inventory item with the given id.
func (s *Snapshot) InventoryItem(id string) (model.InventoryItem, bool) {
	if i := indexItem(s.Inventory, id); i >= 0 {
		return s.Inventory[i], true
	}
	return model.InventoryItem{}, false
}

// Customer returns the customer with the given id.
func (s *Snapshot) Customer(id string) (model.Customer, bool) {
	if i := indexCustomer(s.Customers, id); i >= 0 {
		return s.Customers[i], true
	}
	return model.Customer{}, false
}

// Notification returns the notification with the given id.
func (s *Snapshot) Notification(id string) (model.Notification, bool) {
	if i := indexNotification(s.Notifications, id); i >= 0 {
		return s.Notifications[i], true
	}
	return model.Notification{}, false
}

func (s *Snapshot) PendingOrders() []model.Order   { return s.ordersByID(s.PendingOrderIDs) }
func (s *Snapshot) ActiveOrders() []model.Order    { return s.ordersByID(s.ActiveOrderIDs) }
func (s *Snapshot) CompletedOrders() []model.Order { return s.ordersByID(s.CompletedOrderIDs) }

func (s *Snapshot) LowStockItems() []model.InventoryItem   { return s.itemsByID(s.LowStockIDs) }
func (s *Snapshot) OutOfStockItems() []model.InventoryItem { return s.itemsByID(s.OutOfStockIDs) }

func (s *Snapshot) VIPCustomers() []model.Customer { return s.customersByID(s.VIPCustomerIDs) }
func (s *Snapshot) NewCustomers() []model.Customer { return s.customersByID(s.NewCustomerIDs) }

func (s *Snapshot) CriticalAlerts() []model.Notification {
	out := make([]model.Notification, 0, len(s.CriticalAlertIDs))
	for _, id := range s.CriticalAlertIDs {
		if n, ok := s.Notification(id); ok {
			out = append(out, n)
		}
	}
	return out
}

func (s *Snapshot) ordersByID(ids []string) []model.Order {
	out := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.Order(id); ok {
			out = append(out, o)
		}
	}
	return out
}

func (s *Snapshot) itemsByID(ids []string) []model.InventoryItem {
	out := make([]model.InventoryItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.InventoryItem(id); ok {
			out = append(out, it)
		}
	}
	return out
}

func (s *Snapshot) customersByID(ids []string) []model.Customer {
	out := make([]model.Customer, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Customer(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func indexOrder(orders []model.Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

func indexItem(items []model.InventoryItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func indexCustomer(customers []model.Customer, id string) int {
	for i := range customers {
		if customers[i].ID == id {
			return i
		}
	}
	return -1
}

func indexNotification(ns []model.Notification, id string) int {
	for i := range ns {
		if ns[i].ID == id {
			return i
		}
	}
	return -1
}
