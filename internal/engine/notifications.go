package engine

import (
	"slices"

	"github.com/kiwari-pos/opsdash/internal/enum"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// AddNotification adds an alert. ID and CreatedAt are assigned when empty;
// Read is kept as given.
type AddNotification struct {
	Notification model.Notification
}

// MarkRead marks one notification as read.
type MarkRead struct {
	NotificationID string
}

// ClearAll removes every notification.
type ClearAll struct{}

func (a AddNotification) apply(tx *txn) error {
	n := a.Notification
	if n.Type == "" {
		n.Type = enum.NotificationSystem
	}
	if n.Priority == "" {
		n.Priority = enum.PriorityMedium
	}
	tx.notify(n)
	return nil
}

func (a MarkRead) apply(tx *txn) error {
	i := indexNotification(tx.state.Notifications, a.NotificationID)
	if i < 0 {
		return ErrNotFound
	}
	if tx.state.Notifications[i].Read {
		return nil
	}
	ns := tx.notifications()
	ns[i].Read = true
	tx.decUnread(ns[i].ID)
	return nil
}

func (ClearAll) apply(tx *txn) error {
	if len(tx.state.Notifications) == 0 && tx.state.UnreadCount == 0 {
		return nil
	}
	tx.state.Notifications = []model.Notification{}
	tx.cloned |= maskNotifications
	tx.state.UnreadCount = 0
	tx.state.CriticalAlertIDs = []string{}
	tx.critCOW = true
	tx.touch()
	return nil
}

// notify prepends n to the notification list and updates the unread counter
// and critical subset.
func (tx *txn) notify(n model.Notification) {
	if n.ID == "" {
		n.ID = tx.e.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = tx.now
	}
	n.Tags = slices.Clone(n.Tags)

	ns := make([]model.Notification, 0, len(tx.state.Notifications)+1)
	ns = append(ns, n)
	tx.state.Notifications = append(ns, tx.state.Notifications...)
	tx.cloned |= maskNotifications
	tx.touch()

	if !n.Read {
		tx.state.UnreadCount++
		if n.Priority == enum.PriorityCritical {
			tx.state.CriticalAlertIDs = append(tx.criticalIDs(), n.ID)
		}
	}
	tx.notification = n
}

// decUnread accounts for one notification leaving the unread set.
func (tx *txn) decUnread(id string) {
	tx.state.UnreadCount = max(tx.state.UnreadCount-1, 0)
	if i := slices.Index(tx.state.CriticalAlertIDs, id); i >= 0 {
		tx.state.CriticalAlertIDs = slices.Delete(tx.criticalIDs(), i, i+1)
	}
}

// pruneExpired drops notifications whose expiry has passed.
func (tx *txn) pruneExpired() {
	expired := false
	for _, n := range tx.state.Notifications {
		if n.Expired(tx.now) {
			expired = true
			break
		}
	}
	if !expired {
		return
	}

	kept := make([]model.Notification, 0, len(tx.state.Notifications))
	for _, n := range tx.state.Notifications {
		if !n.Expired(tx.now) {
			kept = append(kept, n)
			continue
		}
		if !n.Read {
			tx.decUnread(n.ID)
		}
	}
	tx.state.Notifications = kept
	tx.cloned |= maskNotifications
	tx.touch()
}

// AddNotification adds an alert and returns it with its assigned id.
func (e *Engine) AddNotification(n model.Notification) model.Notification {
	return e.run(AddNotification{Notification: n}).notification
}

// MarkRead marks a notification as read. Missing or already read
// notifications are left alone.
func (e *Engine) MarkRead(id string) {
	e.run(MarkRead{NotificationID: id})
}

// ClearAll removes every notification.
func (e *Engine) ClearAll() {
	e.run(ClearAll{})
}
