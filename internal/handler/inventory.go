package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/shopspring/decimal"
)

// InventoryHandler handles inventory endpoints.
type InventoryHandler struct {
	engines Engines
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(engines Engines) *InventoryHandler {
	return &InventoryHandler{engines: engines}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted inside a store-scoped subrouter: /stores/{sid}/inventory
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Patch("/stock", h.UpdateStock)
	})
}

// --- Request types ---

type inventoryItemRequest struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	CurrentStock int              `json:"current_stock"`
	MinStock     int              `json:"min_stock"`
	MaxStock     int              `json:"max_stock"`
	ReorderPoint int              `json:"reorder_point"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	UnitCost     decimal.Decimal  `json:"unit_cost"`
	IsAvailable  *bool            `json:"is_available"`
	Tags         []string         `json:"tags"`
	Supplier     *model.Supplier  `json:"supplier"`
	Nutrition    *model.Nutrition `json:"nutrition"`
}

type updateInventoryItemRequest struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	CurrentStock *int             `json:"current_stock"`
	MinStock     *int             `json:"min_stock"`
	MaxStock     *int             `json:"max_stock"`
	ReorderPoint *int             `json:"reorder_point"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	IsAvailable  *bool            `json:"is_available"`
	Tags         []string         `json:"tags"`
	Supplier     *model.Supplier  `json:"supplier"`
	Nutrition    *model.Nutrition `json:"nutrition"`
}

type updateStockRequest struct {
	Stock *int `json:"stock"`
}

// --- Handlers ---

// List returns inventory, optionally narrowed to one derived view.
// Query: ?view=low|out
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	s := e.State()

	var items []model.InventoryItem
	switch r.URL.Query().Get("view") {
	case "":
		items = s.Inventory
	case "low":
		items = s.LowStockItems()
	case "out":
		items = s.OutOfStockItems()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid view"})
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns a single item by ID.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	it, ok := e.State().InventoryItem(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Create adds an inventory item. Stock is clamped to [0, max_stock].
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req inventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.MaxStock < 0 || req.MinStock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock limits must be >= 0"})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	res, err := e.Apply(engine.AddInventoryItem{Item: model.InventoryItem{
		ID:           req.ID,
		Name:         req.Name,
		Category:     req.Category,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		ReorderPoint: req.ReorderPoint,
		UnitPrice:    req.UnitPrice,
		UnitCost:     req.UnitCost,
		IsAvailable:  available,
		Tags:         req.Tags,
		Supplier:     req.Supplier,
		Nutrition:    req.Nutrition,
	}})
	if err != nil {
		writeEngineError(w, "add inventory item", err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Item)
}

// Update patches an inventory item.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updateInventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name must not be empty"})
		return
	}

	res, err := e.Apply(engine.UpdateInventoryItem{
		ItemID: chi.URLParam(r, "id"),
		Patch: engine.InventoryPatch{
			Name:         req.Name,
			Category:     req.Category,
			CurrentStock: req.CurrentStock,
			MinStock:     req.MinStock,
			MaxStock:     req.MaxStock,
			ReorderPoint: req.ReorderPoint,
			UnitPrice:    req.UnitPrice,
			UnitCost:     req.UnitCost,
			IsAvailable:  req.IsAvailable,
			Tags:         req.Tags,
			Supplier:     req.Supplier,
			Nutrition:    req.Nutrition,
		},
	})
	if err != nil {
		writeEngineError(w, "update inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Item)
}

// UpdateStock sets an item's stock level. Out-of-range values are clamped.
func (h *InventoryHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updateStockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Stock == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock is required"})
		return
	}

	res, err := e.Apply(engine.UpdateInventory{ItemID: chi.URLParam(r, "id"), Stock: *req.Stock})
	if err != nil {
		writeEngineError(w, "update stock", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Item)
}

// Delete removes an inventory item.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	if err := e.Dispatch(engine.RemoveInventoryItem{ItemID: chi.URLParam(r, "id")}); err != nil {
		writeEngineError(w, "remove inventory item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
