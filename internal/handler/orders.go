package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/shopspring/decimal"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	engines Engines
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(engines Engines) *OrderHandler {
	return &OrderHandler{engines: engines}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a store-scoped subrouter: /stores/{sid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Patch("/status", h.UpdateStatus)
		r.Patch("/payment", h.UpdatePayment)
		r.Post("/cancel", h.Cancel)
	})
}

// --- Request types ---

type addOnRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type lineItemRequest struct {
	ProductID           string          `json:"product_id"`
	Name                string          `json:"name"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Quantity            int             `json:"quantity"`
	AddOns              []addOnRequest  `json:"add_ons"`
	SpecialInstructions string          `json:"special_instructions"`
}

type createOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	CustomerName    string             `json:"customer_name"`
	Items           []lineItemRequest  `json:"items"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Priority        enum.OrderPriority `json:"priority"`
	PaymentMethod   string             `json:"payment_method"`
	DeliveryAddress string             `json:"delivery_address"`
	Notes           string             `json:"notes"`
	EstimatedReady  *time.Time         `json:"estimated_ready"`
}

type updateOrderRequest struct {
	Status          *enum.OrderStatus   `json:"status"`
	Priority        *enum.OrderPriority `json:"priority"`
	PaymentMethod   *string             `json:"payment_method"`
	DeliveryAddress *string             `json:"delivery_address"`
	TrackingID      *string             `json:"tracking_id"`
	Notes           *string             `json:"notes"`
	EstimatedReady  *time.Time          `json:"estimated_ready"`
}

type updateOrderStatusRequest struct {
	Status enum.OrderStatus `json:"status"`
}

type updatePaymentRequest struct {
	Status enum.PaymentStatus `json:"status"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// --- Handlers ---

// List returns orders, optionally narrowed to one derived view.
// Query: ?view=pending|active|completed
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	s := e.State()

	var orders []model.Order
	switch r.URL.Query().Get("view") {
	case "":
		orders = s.Orders
	case "pending":
		orders = s.PendingOrders()
	case "active":
		orders = s.ActiveOrders()
	case "completed":
		orders = s.CompletedOrders()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid view"})
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get returns a single order by ID.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	o, ok := e.State().Order(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Create places a new order and deducts its items from inventory.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid priority"})
		return
	}

	items := make([]model.LineItem, len(req.Items))
	for i, it := range req.Items {
		if it.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
			return
		}
		if it.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
			return
		}
		if it.UnitPrice.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit_price must be >= 0"})
			return
		}
		items[i] = model.LineItem{
			ProductID:           it.ProductID,
			Name:                it.Name,
			UnitPrice:           it.UnitPrice,
			Quantity:            it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
		}
		for _, a := range it.AddOns {
			items[i].AddOns = append(items[i].AddOns, model.AddOn{Name: a.Name, Price: a.Price})
		}
	}

	res, err := e.Apply(engine.CreateOrder{Draft: engine.OrderDraft{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		Items:           items,
		TotalAmount:     req.TotalAmount,
		Priority:        req.Priority,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		EstimatedReady:  req.EstimatedReady,
	}})
	if err != nil {
		writeEngineError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Order)
}

// Update patches order fields.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := e.Apply(engine.UpdateOrder{
		OrderID: chi.URLParam(r, "id"),
		Patch: engine.OrderPatch{
			Status:          req.Status,
			Priority:        req.Priority,
			PaymentMethod:   req.PaymentMethod,
			DeliveryAddress: req.DeliveryAddress,
			TrackingID:      req.TrackingID,
			Notes:           req.Notes,
			EstimatedReady:  req.EstimatedReady,
		},
	})
	if err != nil {
		writeEngineError(w, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Order)
}

// UpdateStatus moves an order to a new status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updateOrderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := e.Apply(engine.UpdateOrderStatus{OrderID: chi.URLParam(r, "id"), Status: req.Status})
	if err != nil {
		writeEngineError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Order)
}

// UpdatePayment records a payment outcome.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updatePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := e.Dispatch(engine.UpdatePaymentStatus{OrderID: id, Status: req.Status}); err != nil {
		writeEngineError(w, "update payment status", err)
		return
	}
	o, _ := e.State().Order(id)
	writeJSON(w, http.StatusOK, o)
}

// Cancel cancels an order and restores its stock.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req cancelOrderRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	res, err := e.Apply(engine.CancelOrder{OrderID: chi.URLParam(r, "id"), Reason: req.Reason})
	if err != nil {
		writeEngineError(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Order)
}

// Delete removes an order without touching inventory.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	if err := e.Dispatch(engine.DeleteOrder{OrderID: chi.URLParam(r, "id")}); err != nil {
		writeEngineError(w, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
