package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	engines Engines
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(engines Engines) *CustomerHandler {
	return &CustomerHandler{engines: engines}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted inside a store-scoped subrouter: /stores/{sid}/customers
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// --- Request types ---

type createCustomerRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	IsVIP       bool              `json:"is_vip"`
	LoyaltyTier string            `json:"loyalty_tier"`
	Preferences model.Preferences `json:"preferences"`
}

type updateCustomerRequest struct {
	Name        *string            `json:"name"`
	Email       *string            `json:"email"`
	Phone       *string            `json:"phone"`
	Address     *string            `json:"address"`
	IsVIP       *bool              `json:"is_vip"`
	LoyaltyTier *string            `json:"loyalty_tier"`
	Preferences *model.Preferences `json:"preferences"`
}

// --- Handlers ---

// List returns customers, optionally narrowed to one derived view.
// Query: ?view=vip|new
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	s := e.State()

	var customers []model.Customer
	switch r.URL.Query().Get("view") {
	case "":
		customers = s.Customers
	case "vip":
		customers = s.VIPCustomers()
	case "new":
		customers = s.NewCustomers()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid view"})
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// Get returns a single customer by ID.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	c, ok := e.State().Customer(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create adds a customer joining now.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req createCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	res, err := e.Apply(engine.AddCustomer{Customer: model.Customer{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		IsVIP:       req.IsVIP,
		LoyaltyTier: req.LoyaltyTier,
		Preferences: req.Preferences,
	}})
	if err != nil {
		writeEngineError(w, "add customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Customer)
}

// Update patches a customer. Order aggregates cannot be changed here.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name must not be empty"})
		return
	}

	res, err := e.Apply(engine.UpdateCustomer{
		CustomerID: chi.URLParam(r, "id"),
		Patch: engine.CustomerPatch{
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			Address:     req.Address,
			IsVIP:       req.IsVIP,
			LoyaltyTier: req.LoyaltyTier,
			Preferences: req.Preferences,
		},
	})
	if err != nil {
		writeEngineError(w, "update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Customer)
}

// Delete removes a customer. Their orders are kept.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	if err := e.Dispatch(engine.RemoveCustomer{CustomerID: chi.URLParam(r, "id")}); err != nil {
		writeEngineError(w, "remove customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
