package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/opsdash/internal/codec"
	"github.com/kiwari-pos/opsdash/internal/engine"
)

// StoreHandler serves the store-wide endpoints: snapshot, lifecycle,
// settings and bulk export/import.
type StoreHandler struct {
	engines       Engines
	defaultFormat codec.Format
}

// NewStoreHandler creates a new StoreHandler. defaultFormat is used when an
// export does not name one.
func NewStoreHandler(engines Engines, defaultFormat codec.Format) *StoreHandler {
	if defaultFormat == "" {
		defaultFormat = codec.JSON
	}
	return &StoreHandler{engines: engines, defaultFormat: defaultFormat}
}

// RegisterRoutes registers store endpoints on the given Chi router.
// Expected to be mounted inside a store-scoped subrouter: /stores/{sid}
func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.State)
	r.Post("/connect", h.Connect)
	r.Post("/disconnect", h.Disconnect)
	r.Post("/sync", h.Sync)
	r.Patch("/settings", h.UpdateSettings)
	r.Get("/export/{collection}", h.Export)
	r.Put("/import/{collection}", h.Import)
}

// --- Request / Response types ---

type connectionResponse struct {
	Version    uint64            `json:"version"`
	Connection engine.Connection `json:"connection"`
}

type updateSettingsRequest struct {
	StoreName        *string `json:"store_name"`
	Currency         *string `json:"currency"`
	LowStockAlerts   *bool   `json:"low_stock_alerts"`
	AutoAcceptOrders *bool   `json:"auto_accept_orders"`
}

func toConnectionResponse(s *engine.Snapshot) connectionResponse {
	return connectionResponse{Version: s.Version, Connection: s.Connection}
}

// --- Handlers ---

// State returns the full current snapshot.
func (h *StoreHandler) State(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	writeJSON(w, http.StatusOK, e.State())
}

// Connect loads the store and starts its background refresh.
func (h *StoreHandler) Connect(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	e.Connect(r.Context())
	writeJSON(w, http.StatusOK, toConnectionResponse(e.State()))
}

// Disconnect stops the background refresh.
func (h *StoreHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	e.Disconnect()
	writeJSON(w, http.StatusOK, toConnectionResponse(e.State()))
}

// Sync performs a full reload from the store's source.
func (h *StoreHandler) Sync(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	if err := e.SyncData(r.Context()); err != nil {
		writeEngineError(w, "sync data", err)
		return
	}
	writeJSON(w, http.StatusOK, toConnectionResponse(e.State()))
}

// UpdateSettings patches the store settings.
func (h *StoreHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req updateSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StoreName != nil && *req.StoreName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "store_name must not be empty"})
		return
	}

	e.UpdateSettings(engine.SettingsPatch{
		StoreName:        req.StoreName,
		Currency:         req.Currency,
		LowStockAlerts:   req.LowStockAlerts,
		AutoAcceptOrders: req.AutoAcceptOrders,
	})
	writeJSON(w, http.StatusOK, e.State().Settings)
}

// Export writes one collection, or the whole dataset for "all".
// Query: ?format=json|cbor
func (h *StoreHandler) Export(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	c, err := engine.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		writeEngineError(w, "export", err)
		return
	}
	f := h.defaultFormat
	if s := r.URL.Query().Get("format"); s != "" {
		if f, err = codec.ParseFormat(s); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid format"})
			return
		}
	}

	data, err := e.ExportData(c, f)
	if err != nil {
		writeEngineError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(c)+"."+string(f)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import replaces one collection with the request body. The format follows
// the Content-Type header (application/cbor or JSON).
func (h *StoreHandler) Import(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	c, err := engine.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		writeEngineError(w, "import", err)
		return
	}
	f := codec.JSON
	if r.Header.Get("Content-Type") == codec.CBOR.ContentType() {
		f = codec.CBOR
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := e.ImportData(c, f, data); err != nil {
		if errors.Is(err, engine.ErrUnknownCollection) || errors.Is(err, engine.ErrInvalidFormat) {
			writeEngineError(w, "import", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + string(c) + " payload"})
		return
	}
	writeJSON(w, http.StatusOK, toConnectionResponse(e.State()))
}
