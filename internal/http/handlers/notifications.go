package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

func (a *App) NotificationsList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := a.Exchange.ListNotifications(r.Context(), a.currentUserID(r), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, notificationView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

func (a *App) NotificationsUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.Exchange.UnreadCount(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"count": count})
}

func (a *App) NotificationsAccept(w http.ResponseWriter, r *http.Request) {
	donation, chat, err := a.Exchange.Accept(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"donation": donationView(donation),
		"chat_id":  chat.ID,
	})
}

func (a *App) NotificationsDecline(w http.ResponseWriter, r *http.Request) {
	if err := a.Exchange.Decline(r.Context(), a.currentUserID(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (a *App) NotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := a.Exchange.MarkNotificationRead(r.Context(), a.currentUserID(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "read"})
}

func notificationView(n *domain.Notification) map[string]any {
	return map[string]any{
		"id":          n.ID,
		"from_user":   n.FromUser,
		"to_user":     n.ToUser,
		"type":        n.Type,
		"donation_id": n.DonationID,
		"message":     n.Message,
		"status":      n.Status,
		"created_at":  n.CreatedAt.Format(time.RFC3339),
	}
}
