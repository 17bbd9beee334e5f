package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/shopspring/decimal"
)

// OrderDraft is the caller-supplied part of a new order.
type OrderDraft struct {
	CustomerID      string
	CustomerName    string
	Items           []model.LineItem
	TotalAmount     decimal.Decimal // computed from the items when zero
	Status          enum.OrderStatus
	Priority        enum.OrderPriority
	PaymentMethod   string
	PaymentStatus   enum.PaymentStatus
	DeliveryAddress string
	TrackingID      string
	Notes           string
	EstimatedReady  *time.Time
}

// OrderPatch holds the fields UpdateOrder may change. Nil fields are kept.
type OrderPatch struct {
	Status          *enum.OrderStatus
	Priority        *enum.OrderPriority
	PaymentMethod   *string
	DeliveryAddress *string
	TrackingID      *string
	Notes           *string
	EstimatedReady  *time.Time
}

// CreateOrder adds an order and deducts its items from inventory.
type CreateOrder struct {
	Draft OrderDraft
}

// UpdateOrderStatus moves an order to a new status.
type UpdateOrderStatus struct {
	OrderID string
	Status  enum.OrderStatus
}

// UpdateOrder patches order fields.
type UpdateOrder struct {
	OrderID string
	Patch   OrderPatch
}

// CancelOrder cancels an order and gives its stock back.
type CancelOrder struct {
	OrderID string
	Reason  string
}

// DeleteOrder removes an order without touching inventory.
type DeleteOrder struct {
	OrderID string
}

// UpdatePaymentStatus records the outcome of a payment gateway flow.
type UpdatePaymentStatus struct {
	OrderID string
	Status  enum.PaymentStatus
}

func (a CreateOrder) apply(tx *txn) error {
	d := a.Draft
	o := model.Order{
		ID:              tx.e.newID(),
		CustomerID:      d.CustomerID,
		CustomerName:    d.CustomerName,
		Items:           slices.Clone(d.Items),
		TotalAmount:     d.TotalAmount,
		Status:          d.Status,
		Priority:        d.Priority,
		PaymentMethod:   d.PaymentMethod,
		PaymentStatus:   d.PaymentStatus,
		DeliveryAddress: d.DeliveryAddress,
		TrackingID:      d.TrackingID,
		Notes:           d.Notes,
		EstimatedReady:  d.EstimatedReady,
		CreatedAt:       tx.now,
		UpdatedAt:       tx.now,
	}
	if !o.Status.Valid() {
		o.Status = enum.OrderStatusPending
		if tx.state.Settings.AutoAcceptOrders {
			o.Status = enum.OrderStatusAccepted
		}
	}
	if !o.Priority.Valid() {
		o.Priority = enum.OrderPriorityNormal
	}
	if !o.PaymentStatus.Valid() {
		o.PaymentStatus = enum.PaymentStatusPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = enum.PaymentMethodCash
	}

	// Stock is taken optimistically: a short item is clamped at zero and the
	// order still goes through. StockDeducted records what was really taken.
	total := decimal.Zero
	for i := range o.Items {
		li := &o.Items[i]
		li.AddOns = slices.Clone(li.AddOns)
		li.StockDeducted = 0
		total = total.Add(li.Subtotal())

		j := indexItem(tx.state.Inventory, li.ProductID)
		if j < 0 || li.Quantity <= 0 {
			continue
		}
		inv := tx.inventory()
		take := min(li.Quantity, inv[j].CurrentStock)
		inv[j].CurrentStock -= take
		inv[j].LastUpdated = tx.now
		li.StockDeducted = take
		if li.Name == "" {
			li.Name = inv[j].Name
		}
		tx.markDirty(maskInventory)
	}
	if o.TotalAmount.IsZero() {
		o.TotalAmount = total
	}

	if j := indexCustomer(tx.state.Customers, o.CustomerID); j >= 0 {
		cs := tx.customers()
		cs[j].TotalOrders++
		cs[j].TotalSpent = cs[j].TotalSpent.Add(o.TotalAmount)
		if o.CustomerName == "" {
			o.CustomerName = cs[j].Name
		}
		tx.markDirty(maskCustomers)
	}

	tx.state.Orders = append(tx.orders(), o)
	tx.markDirty(maskOrders)

	prio := enum.PriorityHigh
	if o.Priority == enum.OrderPriorityUrgent {
		prio = enum.PriorityUrgent
	}
	tx.notify(model.Notification{
		Type:     enum.NotificationOrder,
		Title:    "New order",
		Message:  fmt.Sprintf("Order %s from %s: %s", shortID(o.ID), customerLabel(o), o.TotalAmount.StringFixed(2)),
		Priority: prio,
		Action:   orderAction(o.ID),
		Tags:     []string{"order", o.ID},
	})
	tx.order = o
	return nil
}

func (a UpdateOrderStatus) apply(tx *txn) error {
	if !a.Status.Valid() {
		return ErrInvalidStatus
	}
	i := indexOrder(tx.state.Orders, a.OrderID)
	if i < 0 {
		return ErrNotFound
	}
	if err := tx.setStatus(i, a.Status); err != nil {
		return err
	}
	o := tx.state.Orders[i]
	tx.notify(model.Notification{
		Type:     enum.NotificationOrder,
		Title:    "Order status updated",
		Message:  fmt.Sprintf("Order %s is now %s", shortID(o.ID), o.Status),
		Priority: enum.PriorityMedium,
		Action:   orderAction(o.ID),
		Tags:     []string{"order", o.ID},
	})
	tx.order = o
	return nil
}

func (a UpdateOrder) apply(tx *txn) error {
	i := indexOrder(tx.state.Orders, a.OrderID)
	if i < 0 {
		return ErrNotFound
	}
	p := a.Patch
	if p.Status != nil && *p.Status != tx.state.Orders[i].Status {
		if !p.Status.Valid() {
			return ErrInvalidStatus
		}
		if err := tx.setStatus(i, *p.Status); err != nil {
			return err
		}
	}

	orders := tx.orders()
	o := &orders[i]
	if p.Priority != nil && p.Priority.Valid() {
		o.Priority = *p.Priority
	}
	if p.PaymentMethod != nil {
		o.PaymentMethod = *p.PaymentMethod
	}
	if p.DeliveryAddress != nil {
		o.DeliveryAddress = *p.DeliveryAddress
	}
	if p.TrackingID != nil {
		o.TrackingID = *p.TrackingID
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	if p.EstimatedReady != nil {
		t := *p.EstimatedReady
		o.EstimatedReady = &t
	}
	o.UpdatedAt = tx.now
	tx.order = *o
	return nil
}

func (a CancelOrder) apply(tx *txn) error {
	i := indexOrder(tx.state.Orders, a.OrderID)
	if i < 0 {
		return ErrNotFound
	}
	cur := tx.state.Orders[i]
	switch cur.Status {
	case enum.OrderStatusCompleted:
		tx.order = cur
		return nil
	case enum.OrderStatusCancelled:
		// Cancelled through a status update: hand back whatever stock the
		// order still holds, once.
		if !holdsStock(cur) {
			tx.order = cur
			return nil
		}
		orders := tx.orders()
		o := &orders[i]
		tx.restoreStock(o)
		o.UpdatedAt = tx.now
		tx.markDirty(maskOrders)
		tx.order = *o
		return nil
	}

	orders := tx.orders()
	o := &orders[i]
	tx.restoreStock(o)
	o.Status = enum.OrderStatusCancelled
	o.CancelReason = a.Reason
	o.UpdatedAt = tx.now
	tx.markDirty(maskOrders)

	msg := fmt.Sprintf("Order %s was cancelled", shortID(o.ID))
	if a.Reason != "" {
		msg += ": " + a.Reason
	}
	tx.notify(model.Notification{
		Type:     enum.NotificationOrder,
		Title:    "Order cancelled",
		Message:  msg,
		Priority: enum.PriorityMedium,
		Action:   orderAction(o.ID),
		Tags:     []string{"order", "cancelled", o.ID},
	})
	tx.order = *o
	return nil
}

func holdsStock(o model.Order) bool {
	for _, li := range o.Items {
		if li.StockDeducted > 0 {
			return true
		}
	}
	return false
}

// restoreStock returns every line item's deducted stock to inventory,
// clamped to maxStock, and zeroes StockDeducted.
func (tx *txn) restoreStock(o *model.Order) {
	o.Items = slices.Clone(o.Items)
	for k := range o.Items {
		li := &o.Items[k]
		if li.StockDeducted == 0 {
			continue
		}
		if j := indexItem(tx.state.Inventory, li.ProductID); j >= 0 {
			inv := tx.inventory()
			inv[j].CurrentStock = min(inv[j].CurrentStock+li.StockDeducted, inv[j].MaxStock)
			inv[j].LastUpdated = tx.now
			tx.markDirty(maskInventory)
		}
		li.StockDeducted = 0
	}
}

func (a DeleteOrder) apply(tx *txn) error {
	i := indexOrder(tx.state.Orders, a.OrderID)
	if i < 0 {
		return ErrNotFound
	}
	tx.state.Orders = slices.Delete(tx.orders(), i, i+1)
	tx.markDirty(maskOrders)
	return nil
}

func (a UpdatePaymentStatus) apply(tx *txn) error {
	if !a.Status.Valid() {
		return ErrInvalidStatus
	}
	i := indexOrder(tx.state.Orders, a.OrderID)
	if i < 0 {
		return ErrNotFound
	}
	prev := tx.state.Orders[i].PaymentStatus
	if prev == a.Status {
		return nil
	}

	orders := tx.orders()
	o := &orders[i]
	o.PaymentStatus = a.Status
	o.UpdatedAt = tx.now
	tx.order = *o

	n := model.Notification{
		Type:   enum.NotificationPayment,
		Action: orderAction(o.ID),
		Tags:   []string{"payment", o.ID},
	}
	switch a.Status {
	case enum.PaymentStatusPaid:
		tx.addRevenue(o.TotalAmount, 1)
		n.Title = "Payment received"
		n.Message = fmt.Sprintf("Order %s paid: %s", shortID(o.ID), o.TotalAmount.StringFixed(2))
		n.Priority = enum.PriorityLow
	case enum.PaymentStatusRefunded:
		if prev == enum.PaymentStatusPaid {
			tx.addRevenue(o.TotalAmount.Neg(), -1)
		}
		n.Title = "Payment refunded"
		n.Message = fmt.Sprintf("Order %s refunded: %s", shortID(o.ID), o.TotalAmount.StringFixed(2))
		n.Priority = enum.PriorityMedium
	case enum.PaymentStatusFailed:
		n.Title = "Payment failed"
		n.Message = fmt.Sprintf("Payment for order %s failed", shortID(o.ID))
		n.Priority = enum.PriorityHigh
	default:
		return nil
	}
	tx.notify(n)
	return nil
}

// setStatus changes the status of the order at index i, consulting the
// transition policy.
func (tx *txn) setStatus(i int, to enum.OrderStatus) error {
	from := tx.state.Orders[i].Status
	if !tx.e.policy(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrIllegalTransition)
	}
	orders := tx.orders()
	orders[i].Status = to
	orders[i].UpdatedAt = tx.now
	tx.markDirty(maskOrders)
	return nil
}

// addRevenue folds a payment into the sales summary.
func (tx *txn) addRevenue(amount decimal.Decimal, orders int) {
	s := &tx.state.Sales
	s.Revenue = s.Revenue.Add(amount)
	s.OrderCount = max(s.OrderCount+orders, 0)
	if s.OrderCount > 0 {
		s.AverageOrderValue = s.Revenue.Div(decimal.NewFromInt(int64(s.OrderCount))).Round(2)
	} else {
		s.AverageOrderValue = decimal.Zero
	}
	s.UpdatedAt = tx.now
	tx.touch()
}

func orderAction(id string) *model.NotificationAction {
	return &model.NotificationAction{Label: "View order", Target: "/orders/" + id}
}

func customerLabel(o model.Order) string {
	if o.CustomerName != "" {
		return o.CustomerName
	}
	if o.CustomerID != "" {
		return o.CustomerID
	}
	return "walk-in customer"
}

// shortID is the last eight characters of an id, as printed on receipts.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// CreateOrder adds an order and returns it with its assigned id.
func (e *Engine) CreateOrder(d OrderDraft) model.Order {
	return e.run(CreateOrder{Draft: d}).order
}

// UpdateOrderStatus moves an order to status. A missing order, or a change
// rejected by the transition policy, leaves the state untouched.
func (e *Engine) UpdateOrderStatus(id string, status enum.OrderStatus) {
	e.run(UpdateOrderStatus{OrderID: id, Status: status})
}

// UpdateOrder patches order fields.
func (e *Engine) UpdateOrder(id string, p OrderPatch) {
	e.run(UpdateOrder{OrderID: id, Patch: p})
}

// CancelOrder cancels an order and restores the stock it took.
func (e *Engine) CancelOrder(id, reason string) {
	e.run(CancelOrder{OrderID: id, Reason: reason})
}

// DeleteOrder removes an order.
func (e *Engine) DeleteOrder(id string) {
	e.run(DeleteOrder{OrderID: id})
}

// UpdatePaymentStatus records a payment outcome for an order.
func (e *Engine) UpdatePaymentStatus(id string, status enum.PaymentStatus) {
	e.run(UpdatePaymentStatus{OrderID: id, Status: status})
}
