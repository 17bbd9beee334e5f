// Package model defines the entities held by the dashboard state engine.
//
// Values of these types are shared between immutable snapshots. Code that
// needs to change a nested slice (line items, tags) must copy it first.
package model

import (
	"time"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/shopspring/decimal"
)

// AddOn is an optional extra attached to a line item.
type AddOn struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// LineItem is a single product line on an order.
type LineItem struct {
	ProductID           string          `json:"product_id"`
	Name                string          `json:"name,omitempty"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Quantity            int             `json:"quantity"`
	AddOns              []AddOn         `json:"add_ons,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`

	// StockDeducted is how many units were actually taken from inventory
	// when the order was created. It can be lower than Quantity when stock
	// ran out, and drops to zero once the stock has been given back.
	StockDeducted int `json:"stock_deducted"`
}

// Subtotal is unit price times quantity plus add-ons (once per unit).
func (li LineItem) Subtotal() decimal.Decimal {
	unit := li.UnitPrice
	for _, a := range li.AddOns {
		unit = unit.Add(a.Price)
	}
	return unit.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a customer order tracked by the dashboard.
type Order struct {
	ID              string             `json:"id"`
	CustomerID      string             `json:"customer_id"`
	CustomerName    string             `json:"customer_name,omitempty"`
	Items           []LineItem         `json:"items"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Status          enum.OrderStatus   `json:"status"`
	Priority        enum.OrderPriority `json:"priority"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentStatus   enum.PaymentStatus `json:"payment_status"`
	DeliveryAddress string             `json:"delivery_address,omitempty"`
	TrackingID      string             `json:"tracking_id,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	EstimatedReady  *time.Time         `json:"estimated_ready,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Supplier is optional sourcing metadata for an inventory item.
type Supplier struct {
	Name     string `json:"name"`
	Contact  string `json:"contact,omitempty"`
	LeadDays int    `json:"lead_days,omitempty"`
}

// Nutrition is optional per-serving nutrition metadata.
type Nutrition struct {
	Calories  int      `json:"calories"`
	Protein   float64  `json:"protein"`
	Carbs     float64  `json:"carbs"`
	Fat       float64  `json:"fat"`
	Allergens []string `json:"allergens,omitempty"`
}

// InventoryItem is a stocked product. CurrentStock stays within
// [0, MaxStock] at all times.
type InventoryItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	CurrentStock int             `json:"current_stock"`
	MinStock     int             `json:"min_stock"`
	MaxStock     int             `json:"max_stock"`
	ReorderPoint int             `json:"reorder_point"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	IsAvailable  bool            `json:"is_available"`
	Tags         []string        `json:"tags,omitempty"`
	Supplier     *Supplier       `json:"supplier,omitempty"`
	Nutrition    *Nutrition      `json:"nutrition,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// LowStock reports whether the item is running low but not yet empty.
func (i InventoryItem) LowStock() bool {
	return i.CurrentStock > 0 && i.CurrentStock <= i.MinStock
}

// OutOfStock reports whether the item is empty.
func (i InventoryItem) OutOfStock() bool {
	return i.CurrentStock == 0
}

// Preferences holds what the store knows about a customer's tastes.
type Preferences struct {
	Favorites              []string `json:"favorites,omitempty"`
	DietaryRestrictions    []string `json:"dietary_restrictions,omitempty"`
	PreferredPaymentMethod string   `json:"preferred_payment_method,omitempty"`
	MarketingOptIn         bool     `json:"marketing_opt_in"`
}

// Customer is a store customer with aggregate purchase history.
type Customer struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Address     string          `json:"address,omitempty"`
	JoinDate    time.Time       `json:"join_date"`
	TotalOrders int             `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	IsVIP       bool            `json:"is_vip"`
	LoyaltyTier string          `json:"loyalty_tier,omitempty"`
	Preferences Preferences     `json:"preferences"`
}

// NotificationAction is an optional call to action bound to a notification.
type NotificationAction struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Notification is an alert shown on the dashboard.
type Notification struct {
	ID        string                    `json:"id"`
	Type      enum.NotificationType     `json:"type"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	Priority  enum.NotificationPriority `json:"priority"`
	Read      bool                      `json:"read"`
	CreatedAt time.Time                 `json:"created_at"`
	ExpiresAt *time.Time                `json:"expires_at,omitempty"`
	Action    *NotificationAction       `json:"action,omitempty"`
	Tags      []string                  `json:"tags,omitempty"`
}

// Expired reports whether the notification's expiry has passed at now.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// SalesSummary holds the aggregate sales figures shown on the dashboard.
type SalesSummary struct {
	Revenue           decimal.Decimal `json:"revenue"`
	OrderCount        int             `json:"order_count"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	ActiveVisitors    int             `json:"active_visitors"`
	ConversionRate    decimal.Decimal `json:"conversion_rate"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Settings holds per-store behaviour switches.
type Settings struct {
	StoreName        string `json:"store_name"`
	Currency         string `json:"currency"`
	LowStockAlerts   bool   `json:"low_stock_alerts"`
	AutoAcceptOrders bool   `json:"auto_accept_orders"`
}

// DefaultSettings returns the settings a fresh store starts with.
func DefaultSettings() Settings {
	return Settings{
		StoreName:      "Store",
		Currency:       "IDR",
		LowStockAlerts: true,
	}
}
