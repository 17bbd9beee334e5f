package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/clock"
	"github.com/kiwari-pos/opsdash/internal/codec"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/handler"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// --- Mock engines ---

type mockEngines struct {
	engines map[uuid.UUID]*engine.Engine
	clock   *clock.FakeClock
	loader  engine.Loader
	err     error
	ids     int
}

func newMockEngines() *mockEngines {
	return &mockEngines{
		engines: make(map[uuid.UUID]*engine.Engine),
		clock:   clock.Fake(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)),
	}
}

func (m *mockEngines) Get(_ context.Context, storeID uuid.UUID) (*engine.Engine, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.engines[storeID]
	if !ok {
		opts := []engine.Option{
			engine.WithClock(m.clock),
			engine.WithIDGenerator(func() string {
				m.ids++
				return fmt.Sprintf("id-%d", m.ids)
			}),
		}
		if m.loader != nil {
			opts = append(opts, engine.WithLoader(m.loader))
		}
		e = engine.New(opts...)
		m.engines[storeID] = e
	}
	return e, nil
}

// --- Helpers ---

func setupRouter(engines *mockEngines) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/stores/{sid}", func(r chi.Router) {
		handler.NewStoreHandler(engines, codec.JSON).RegisterRoutes(r)
		r.Route("/orders", handler.NewOrderHandler(engines).RegisterRoutes)
		r.Route("/inventory", handler.NewInventoryHandler(engines).RegisterRoutes)
		r.Route("/customers", handler.NewCustomerHandler(engines).RegisterRoutes)
		r.Route("/notifications", handler.NewNotificationHandler(engines).RegisterRoutes)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func storePath(storeID uuid.UUID, rest string) string {
	return "/stores/" + storeID.String() + rest
}

// --- Tests ---

func TestInvalidStoreID(t *testing.T) {
	router := setupRouter(newMockEngines())

	rr := doRequest(t, router, http.MethodGet, "/stores/not-a-uuid/state", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestEngineUnavailable(t *testing.T) {
	engines := newMockEngines()
	engines.err = errors.New("registry closed")
	router := setupRouter(engines)

	rr := doRequest(t, router, http.MethodGet, storePath(uuid.New(), "/state"), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestStateConnectDisconnect(t *testing.T) {
	engines := newMockEngines()
	engines.loader = engine.LoaderFunc(func(context.Context) (engine.Dataset, error) {
		return engine.Dataset{Inventory: []model.InventoryItem{{ID: "beans", Name: "Beans", CurrentStock: 3, MinStock: 5, MaxStock: 20}}}, nil
	})
	router := setupRouter(engines)
	storeID := uuid.New()

	rr := doRequest(t, router, http.MethodPost, storePath(storeID, "/connect"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("connect: expected status 200, got %d", rr.Code)
	}
	conn := decodeResponse[map[string]any](t, rr)
	if c := conn["connection"].(map[string]any); c["is_connected"] != true {
		t.Errorf("expected connected, got %v", c)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/state"), nil)
	snap := decodeResponse[engine.Snapshot](t, rr)
	if len(snap.LowStockIDs) != 1 || snap.LowStockIDs[0] != "beans" {
		t.Errorf("expected beans in low stock view, got %v", snap.LowStockIDs)
	}

	rr = doRequest(t, router, http.MethodPost, storePath(storeID, "/disconnect"), nil)
	conn = decodeResponse[map[string]any](t, rr)
	if c := conn["connection"].(map[string]any); c["is_connected"] != false || c["status"] != "offline" {
		t.Errorf("expected offline after disconnect, got %v", c)
	}
}

func TestSyncFailureReported(t *testing.T) {
	engines := newMockEngines()
	engines.loader = engine.LoaderFunc(func(context.Context) (engine.Dataset, error) {
		return engine.Dataset{}, errors.New("upstream down")
	})
	router := setupRouter(engines)

	rr := doRequest(t, router, http.MethodPost, storePath(uuid.New(), "/sync"), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestUpdateSettings(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()

	rr := doRequest(t, router, http.MethodPatch, storePath(storeID, "/settings"), map[string]any{
		"store_name":         "Kopi Kiwari",
		"auto_accept_orders": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	settings := decodeResponse[model.Settings](t, rr)
	if settings.StoreName != "Kopi Kiwari" || !settings.AutoAcceptOrders {
		t.Errorf("settings not applied: %+v", settings)
	}
	if !settings.LowStockAlerts {
		t.Error("unpatched field should keep its default")
	}

	rr = doRequest(t, router, http.MethodPatch, storePath(storeID, "/settings"), map[string]any{"store_name": ""})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty store_name: expected status 400, got %d", rr.Code)
	}
}

func TestExportImport(t *testing.T) {
	router := setupRouter(newMockEngines())
	source := uuid.New()
	target := uuid.New()

	doRequest(t, router, http.MethodPost, storePath(source, "/inventory"), map[string]any{
		"id": "milk", "name": "Milk", "current_stock": 4, "min_stock": 2, "max_stock": 10,
	})

	for _, format := range []codec.Format{codec.JSON, codec.CBOR} {
		rr := doRequest(t, router, http.MethodGet, storePath(source, "/export/inventory?format="+string(format)), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s export: expected status 200, got %d", format, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != format.ContentType() {
			t.Errorf("%s export: content type %q", format, ct)
		}

		req := httptest.NewRequest(http.MethodPut, storePath(target, "/import/inventory"), bytes.NewReader(rr.Body.Bytes()))
		req.Header.Set("Content-Type", format.ContentType())
		imp := httptest.NewRecorder()
		router.ServeHTTP(imp, req)
		if imp.Code != http.StatusOK {
			t.Fatalf("%s import: expected status 200, got %d: %s", format, imp.Code, imp.Body.String())
		}

		rr = doRequest(t, router, http.MethodGet, storePath(target, "/inventory/milk"), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: imported item not found", format)
		}
	}
}

func TestExportErrors(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown collection", "/export/widgets", http.StatusBadRequest},
		{"unknown format", "/export/orders?format=xml", http.StatusBadRequest},
		{"all collections", "/export/all", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodGet, storePath(storeID, tt.path), nil)
			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestImportBadPayload(t *testing.T) {
	router := setupRouter(newMockEngines())

	req := httptest.NewRequest(http.MethodPut, storePath(uuid.New(), "/import/orders"), bytes.NewBufferString(`{"not":"a list"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestImportRejectsUnknownOrderStatus(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()

	rr := doRequest(t, router, http.MethodPut, storePath(storeID, "/import/orders"), []map[string]any{
		{"id": "o1", "status": "bogus"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/orders"), nil)
	if got := decodeResponse[[]model.Order](t, rr); len(got) != 0 {
		t.Errorf("rejected import should leave no orders, got %d", len(got))
	}
}
