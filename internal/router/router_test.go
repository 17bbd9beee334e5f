package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/opsdash/internal/auth"
	"github.com/kiwari-pos/opsdash/internal/codec"
	"github.com/kiwari-pos/opsdash/internal/config"
	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/router"
	"github.com/kiwari-pos/opsdash/internal/service"
	"github.com/kiwari-pos/opsdash/internal/ws"
)

const testSecret = "test-secret"

func setup(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"http://localhost:5173"},
		ExportFormat:   codec.JSON,
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)

	registry := service.NewRegistry(hub, nil, service.Options{SyncInterval: time.Hour})
	srv := httptest.NewServer(router.New(cfg, registry, hub))
	t.Cleanup(func() {
		srv.Close()
		registry.Close()
		cancel()
	})
	return srv
}

func bearer(t *testing.T, storeID uuid.UUID, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, uuid.New(), storeID, role, 0)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func do(t *testing.T, srv *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	resp.Body.Close()
	return resp
}

func TestHealth(t *testing.T) {
	srv := setup(t)
	if resp := do(t, srv, http.MethodGet, "/health", "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestStoreRoutesRequireAuth(t *testing.T) {
	srv := setup(t)
	storeID := uuid.New()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"no token", http.MethodGet, "/state", "", "", http.StatusUnauthorized},
		{"staff reads state", http.MethodGet, "/state", bearer(t, storeID, enum.RoleStaff), "", http.StatusOK},
		{"staff of other store", http.MethodGet, "/state", bearer(t, uuid.New(), enum.RoleStaff), "", http.StatusForbidden},
		{"owner of any store", http.MethodGet, "/state", bearer(t, uuid.New(), enum.RoleOwner), "", http.StatusOK},
		{"staff cannot import", http.MethodPut, "/import/orders", bearer(t, storeID, enum.RoleStaff), "[]", http.StatusForbidden},
		{"manager imports", http.MethodPut, "/import/orders", bearer(t, storeID, enum.RoleManager), "[]", http.StatusOK},
		{"staff creates order", http.MethodPost, "/orders", bearer(t, storeID, enum.RoleStaff),
			`{"items":[{"product_id":"latte","quantity":1,"unit_price":"25000"}]}`, http.StatusCreated},
		{"staff cannot sync", http.MethodPost, "/sync", bearer(t, storeID, enum.RoleStaff), "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, tt.method, "/stores/"+storeID.String()+tt.path, tt.token, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestWebSocketStream(t *testing.T) {
	srv := setup(t)
	storeID := uuid.New()
	tok := bearer(t, storeID, enum.RoleStaff)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stores/" + storeID.String() + "?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first ws.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != ws.EventSnapshot {
		t.Fatalf("expected %q first, got %q", ws.EventSnapshot, first.Type)
	}

	resp := do(t, srv, http.MethodPost, "/stores/"+storeID.String()+"/notifications", tok, `{"title":"Hello"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create notification: expected status 201, got %d", resp.StatusCode)
	}

	for {
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read update: %v", err)
		}
		if ev.Type == ws.EventUpdated && ev.Version > first.Version && strings.Contains(string(ev.Payload), `"Hello"`) {
			return
		}
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv := setup(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stores/" + uuid.NewString() + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %v", resp)
	}
}
