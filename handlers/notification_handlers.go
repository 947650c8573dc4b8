package handlers

import (
	"encoding/json"
	"net/http"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/middleware"
)

// ConsumeNotifications drains the caller's mailbox. Each entry is
// returned exactly once; a repeat call gets only what arrived since.
// POST /api/v1/notifications/consume
func ConsumeNotifications(w http.ResponseWriter, r *http.Request) {
	ns := NewNotificationService(config.DB)
	batch, err := ns.Consume(middleware.MailboxID(r))
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batch)
}

// UnreadNotificationCount reports how many entries are waiting, without
// consuming them. Used for the badge in the console header.
// GET /api/v1/notifications/unread
func UnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	ns := NewNotificationService(config.DB)
	count, err := ns.UnreadCount(middleware.MailboxID(r))
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"unread": count})
}
