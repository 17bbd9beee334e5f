package handler_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
)

func seedItem(t *testing.T, router http.Handler, storeID uuid.UUID, id string, stock int) {
	t.Helper()
	rr := doRequest(t, router, http.MethodPost, storePath(storeID, "/inventory"), map[string]any{
		"id": id, "name": id, "current_stock": stock, "min_stock": 2, "max_stock": 50,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed %s: expected status 201, got %d", id, rr.Code)
	}
}

func createOrder(t *testing.T, router http.Handler, storeID uuid.UUID, body map[string]any) model.Order {
	t.Helper()
	rr := doRequest(t, router, http.MethodPost, storePath(storeID, "/orders"), body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create order: expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decodeResponse[model.Order](t, rr)
}

func TestOrderCreate(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()
	seedItem(t, router, storeID, "latte", 10)

	o := createOrder(t, router, storeID, map[string]any{
		"customer_name": "Ayu",
		"items": []map[string]any{
			{"product_id": "latte", "quantity": 2, "unit_price": "28000"},
		},
	})
	if o.Status != enum.OrderStatusPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
	if o.TotalAmount.String() != "56000" {
		t.Errorf("expected total 56000, got %s", o.TotalAmount)
	}

	rr := doRequest(t, router, http.MethodGet, storePath(storeID, "/inventory/latte"), nil)
	item := decodeResponse[model.InventoryItem](t, rr)
	if item.CurrentStock != 8 {
		t.Errorf("expected stock 8 after order, got %d", item.CurrentStock)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/orders?view=pending"), nil)
	pending := decodeResponse[[]model.Order](t, rr)
	if len(pending) != 1 || pending[0].ID != o.ID {
		t.Errorf("expected order in pending view, got %+v", pending)
	}
}

func TestOrderCreateValidation(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no items", map[string]any{"customer_name": "x"}},
		{"zero quantity", map[string]any{"items": []map[string]any{{"product_id": "a", "quantity": 0}}}},
		{"missing product", map[string]any{"items": []map[string]any{{"quantity": 1}}}},
		{"negative price", map[string]any{"items": []map[string]any{{"product_id": "a", "quantity": 1, "unit_price": "-1"}}}},
		{"bad priority", map[string]any{"priority": "asap", "items": []map[string]any{{"product_id": "a", "quantity": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodPost, storePath(storeID, "/orders"), tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestOrderStatusFlow(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()
	o := createOrder(t, router, storeID, map[string]any{
		"items": []map[string]any{{"product_id": "x", "quantity": 1, "unit_price": "10000"}},
	})

	rr := doRequest(t, router, http.MethodPatch, storePath(storeID, "/orders/"+o.ID+"/status"), map[string]any{"status": "preparing"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := decodeResponse[model.Order](t, rr); got.Status != enum.OrderStatusPreparing {
		t.Errorf("expected preparing, got %s", got.Status)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/orders?view=active"), nil)
	if active := decodeResponse[[]model.Order](t, rr); len(active) != 1 {
		t.Errorf("expected 1 active order, got %d", len(active))
	}

	rr = doRequest(t, router, http.MethodPatch, storePath(storeID, "/orders/"+o.ID+"/status"), map[string]any{"status": "teleported"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid status: expected 400, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPatch, storePath(storeID, "/orders/missing/status"), map[string]any{"status": "ready"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing order: expected 404, got %d", rr.Code)
	}
}

func TestOrderUpdate(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()
	o := createOrder(t, router, storeID, map[string]any{
		"items": []map[string]any{{"product_id": "x", "quantity": 1}},
	})

	rr := doRequest(t, router, http.MethodPatch, storePath(storeID, "/orders/"+o.ID), map[string]any{
		"notes":       "no sugar",
		"tracking_id": "TRK-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	got := decodeResponse[model.Order](t, rr)
	if got.Notes != "no sugar" || got.TrackingID != "TRK-1" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.Status != enum.OrderStatusPending {
		t.Errorf("status should be unchanged, got %s", got.Status)
	}
}

func TestOrderCancelRestoresStock(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()
	seedItem(t, router, storeID, "bagel", 5)
	o := createOrder(t, router, storeID, map[string]any{
		"items": []map[string]any{{"product_id": "bagel", "quantity": 3}},
	})

	rr := doRequest(t, router, http.MethodPost, storePath(storeID, "/orders/"+o.ID+"/cancel"), map[string]any{"reason": "customer left"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	got := decodeResponse[model.Order](t, rr)
	if got.Status != enum.OrderStatusCancelled || got.CancelReason != "customer left" {
		t.Errorf("unexpected order after cancel: %+v", got)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/inventory/bagel"), nil)
	if item := decodeResponse[model.InventoryItem](t, rr); item.CurrentStock != 5 {
		t.Errorf("expected stock restored to 5, got %d", item.CurrentStock)
	}

	// Without a body.
	rr = doRequest(t, router, http.MethodPost, storePath(storeID, "/orders/"+o.ID+"/cancel"), nil)
	if rr.Code != http.StatusOK {
		t.Errorf("second cancel: expected status 200, got %d", rr.Code)
	}
}

func TestOrderPayment(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()
	o := createOrder(t, router, storeID, map[string]any{
		"items": []map[string]any{{"product_id": "x", "quantity": 2, "unit_price": "15000"}},
	})

	rr := doRequest(t, router, http.MethodPatch, storePath(storeID, "/orders/"+o.ID+"/payment"), map[string]any{"status": "paid"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := decodeResponse[model.Order](t, rr); got.PaymentStatus != enum.PaymentStatusPaid {
		t.Errorf("expected paid, got %s", got.PaymentStatus)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/state"), nil)
	snap := decodeResponse[map[string]any](t, rr)
	sales := snap["sales"].(map[string]any)
	if sales["revenue"] != "30000" {
		t.Errorf("expected revenue 30000, got %v", sales["revenue"])
	}

	rr = doRequest(t, router, http.MethodPatch, storePath(storeID, "/orders/"+o.ID+"/payment"), map[string]any{"status": "bogus"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid payment status: expected 400, got %d", rr.Code)
	}
}

func TestOrderGetAndDelete(t *testing.T) {
	router := setupRouter(newMockEngines())
	storeID := uuid.New()
	o := createOrder(t, router, storeID, map[string]any{
		"items": []map[string]any{{"product_id": "x", "quantity": 1}},
	})

	rr := doRequest(t, router, http.MethodGet, storePath(storeID, "/orders/"+o.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected status 200, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodDelete, storePath(storeID, "/orders/"+o.ID), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected status 204, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(storeID, "/orders/"+o.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected status 404, got %d", rr.Code)
	}
	rr = doRequest(t, router, http.MethodDelete, storePath(storeID, "/orders/"+o.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("delete twice: expected status 404, got %d", rr.Code)
	}
}

func TestOrderListInvalidView(t *testing.T) {
	router := setupRouter(newMockEngines())

	rr := doRequest(t, router, http.MethodGet, storePath(uuid.New(), "/orders?view=archived"), nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, storePath(uuid.New(), "/orders"), nil)
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("empty store should list [], got %q", body)
	}
}
