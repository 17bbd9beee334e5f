package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/opsdash/internal/config"
	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/handler"
	mw "github.com/kiwari-pos/opsdash/internal/middleware"
	"github.com/kiwari-pos/opsdash/internal/service"
	"github.com/kiwari-pos/opsdash/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, store scoping, and role-based middleware as needed.
func New(cfg *config.Config, registry *service.Registry, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/stores/{sid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, registry, cfg.JWTSecret, w, r)
	})

	storeHandler := handler.NewStoreHandler(registry, cfg.ExportFormat)
	orderHandler := handler.NewOrderHandler(registry)
	inventoryHandler := handler.NewInventoryHandler(registry)
	customerHandler := handler.NewCustomerHandler(registry)
	notificationHandler := handler.NewNotificationHandler(registry)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Store-scoped routes
		r.Route("/stores/{sid}", func(r chi.Router) {
			r.Use(mw.RequireStore)

			r.Get("/state", storeHandler.State)
			r.Get("/export/{collection}", storeHandler.Export)

			// Lifecycle, settings and bulk import change the whole store
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleOwner, enum.RoleManager))
				r.Post("/connect", storeHandler.Connect)
				r.Post("/disconnect", storeHandler.Disconnect)
				r.Post("/sync", storeHandler.Sync)
				r.Patch("/settings", storeHandler.UpdateSettings)
				r.Put("/import/{collection}", storeHandler.Import)
			})

			r.Route("/orders", orderHandler.RegisterRoutes)
			r.Route("/inventory", inventoryHandler.RegisterRoutes)
			r.Route("/customers", customerHandler.RegisterRoutes)
			r.Route("/notifications", notificationHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
