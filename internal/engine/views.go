package engine

import (
	"time"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// Order set membership by status. Cancelled orders are finished and count as
// completed.
func isPendingOrder(s enum.OrderStatus) bool { return s == enum.OrderStatusPending }

func isActiveOrder(s enum.OrderStatus) bool {
	switch s {
	case enum.OrderStatusAccepted, enum.OrderStatusPreparing,
		enum.OrderStatusReady, enum.OrderStatusDelivering:
		return true
	}
	return false
}

func isCompletedOrder(s enum.OrderStatus) bool { return s.Terminal() }

// refreshViews rebuilds the indices of every dirty base collection with a
// full filter pass over that collection only.
func (tx *txn) refreshViews() {
	s := &tx.state
	if tx.dirty&maskOrders != 0 {
		s.PendingOrderIDs, s.ActiveOrderIDs, s.CompletedOrderIDs = orderViews(s.Orders)
	}
	if tx.dirty&maskInventory != 0 {
		s.LowStockIDs, s.OutOfStockIDs = inventoryViews(s.Inventory)
	}
	if tx.dirty&maskCustomers != 0 {
		s.VIPCustomerIDs, s.NewCustomerIDs = customerViews(s.Customers, tx.now, tx.e.newCustomerWindow)
	}
}

func orderViews(orders []model.Order) (pending, active, completed []string) {
	pending, active, completed = []string{}, []string{}, []string{}
	for _, o := range orders {
		switch {
		case isPendingOrder(o.Status):
			pending = append(pending, o.ID)
		case isActiveOrder(o.Status):
			active = append(active, o.ID)
		case isCompletedOrder(o.Status):
			completed = append(completed, o.ID)
		}
	}
	return pending, active, completed
}

func inventoryViews(items []model.InventoryItem) (low, out []string) {
	low, out = []string{}, []string{}
	for _, it := range items {
		if it.LowStock() {
			low = append(low, it.ID)
		}
		if it.OutOfStock() {
			out = append(out, it.ID)
		}
	}
	return low, out
}

func customerViews(customers []model.Customer, now time.Time, window time.Duration) (vip, fresh []string) {
	vip, fresh = []string{}, []string{}
	for _, c := range customers {
		if c.IsVIP {
			vip = append(vip, c.ID)
		}
		if !c.JoinDate.IsZero() && now.Sub(c.JoinDate) <= window {
			fresh = append(fresh, c.ID)
		}
	}
	return vip, fresh
}

// notificationViews recounts unread and critical alerts from scratch. Used
// only when the whole collection is replaced; the dispatcher otherwise
// maintains both incrementally.
func notificationViews(ns []model.Notification) (unread int, critical []string) {
	critical = []string{}
	for _, n := range ns {
		if n.Read {
			continue
		}
		unread++
		if n.Priority == enum.PriorityCritical {
			critical = append(critical, n.ID)
		}
	}
	return unread, critical
}
