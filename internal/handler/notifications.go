package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	engines Engines
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(engines Engines) *NotificationHandler {
	return &NotificationHandler{engines: engines}
}

// RegisterRoutes registers notification endpoints on the given Chi router.
// Expected to be mounted inside a store-scoped subrouter: /stores/{sid}/notifications
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/", h.ClearAll)
	r.Post("/{id}/read", h.MarkRead)
}

// --- Request / Response types ---

type createNotificationRequest struct {
	Type      enum.NotificationType     `json:"type"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	Priority  enum.NotificationPriority `json:"priority"`
	ExpiresAt *time.Time                `json:"expires_at"`
	Action    *model.NotificationAction `json:"action"`
	Tags      []string                  `json:"tags"`
}

type notificationListResponse struct {
	Notifications  []model.Notification `json:"notifications"`
	UnreadCount    int                  `json:"unread_count"`
	CriticalAlerts []model.Notification `json:"critical_alerts"`
}

// --- Handlers ---

// List returns notifications newest first with the unread counter.
// Query: ?unread=true limits the list to unread notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	s := e.State()

	resp := notificationListResponse{
		Notifications:  []model.Notification{},
		UnreadCount:    s.UnreadCount,
		CriticalAlerts: s.CriticalAlerts(),
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	for _, n := range s.Notifications {
		if unreadOnly && n.Read {
			continue
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	if resp.CriticalAlerts == nil {
		resp.CriticalAlerts = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create raises a notification.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	var req createNotificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type"})
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid priority"})
		return
	}

	res, err := e.Apply(engine.AddNotification{Notification: model.Notification{
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Priority:  req.Priority,
		ExpiresAt: req.ExpiresAt,
		Action:    req.Action,
		Tags:      req.Tags,
	}})
	if err != nil {
		writeEngineError(w, "add notification", err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Notification)
}

// MarkRead marks a notification as read. Marking it twice is harmless.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	if err := e.Dispatch(engine.MarkRead{NotificationID: chi.URLParam(r, "id")}); err != nil {
		writeEngineError(w, "mark read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": e.State().UnreadCount})
}

// ClearAll removes every notification.
func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	e := storeEngine(h.engines, w, r)
	if e == nil {
		return
	}
	e.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
