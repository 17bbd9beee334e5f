package enum

// ── Group A: State machines ──

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivering, OrderStatusCompleted,
		OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// PaymentStatus is the outcome recorded from the payment gateway.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ConnectionStatus is the coarse connectivity state of a store engine.
type ConnectionStatus string

const (
	ConnectionOffline    ConnectionStatus = "offline"
	ConnectionConnecting ConnectionStatus = "connecting"
	ConnectionConnected  ConnectionStatus = "connected"
)

// ── Group B: Classifications ──

// OrderPriority controls alert urgency for new orders.
type OrderPriority string

const (
	OrderPriorityNormal OrderPriority = "normal"
	OrderPriorityHigh   OrderPriority = "high"
	OrderPriorityUrgent OrderPriority = "urgent"
)

func (p OrderPriority) Valid() bool {
	switch p {
	case OrderPriorityNormal, OrderPriorityHigh, OrderPriorityUrgent:
		return true
	}
	return false
}

// NotificationType groups notifications by the area that raised them.
type NotificationType string

const (
	NotificationOrder     NotificationType = "order"
	NotificationInventory NotificationType = "inventory"
	NotificationPayment   NotificationType = "payment"
	NotificationSystem    NotificationType = "system"
	NotificationCustomer  NotificationType = "customer"
	NotificationPromotion NotificationType = "promotion"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationOrder, NotificationInventory, NotificationPayment,
		NotificationSystem, NotificationCustomer, NotificationPromotion:
		return true
	}
	return false
}

// NotificationPriority orders alerts by urgency.
type NotificationPriority string

const (
	PriorityLow      NotificationPriority = "low"
	PriorityMedium   NotificationPriority = "medium"
	PriorityHigh     NotificationPriority = "high"
	PriorityUrgent   NotificationPriority = "urgent"
	PriorityCritical NotificationPriority = "critical"
)

func (p NotificationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent, PriorityCritical:
		return true
	}
	return false
}

// ConnectionQuality classifies external data-source availability.
type ConnectionQuality string

const (
	QualityExcellent ConnectionQuality = "excellent"
	QualityGood      ConnectionQuality = "good"
	QualityPoor      ConnectionQuality = "poor"
	QualityOffline   ConnectionQuality = "offline"
)

// ── Group C: Configurable labels ──

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodQRIS     = "qris"
	PaymentMethodTransfer = "transfer"
)

const (
	LoyaltyBronze   = "bronze"
	LoyaltySilver   = "silver"
	LoyaltyGold     = "gold"
	LoyaltyPlatinum = "platinum"
)

const (
	RoleOwner   = "OWNER"
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)
