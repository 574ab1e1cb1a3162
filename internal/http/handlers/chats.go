package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

func (a *App) ChatsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	items, err := a.Exchange.ListChats(r.Context(), userID)
	if err != nil {
		a.fail(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, chatView(&items[i], userID))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

func (a *App) ChatMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := a.Exchange.ChatMessages(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, messageView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

type chatSendRequest struct {
	Body string `json:"body"`
}

func (a *App) ChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	message, err := a.Exchange.SendMessage(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"), req.Body)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, messageView(message))
}

func chatView(c *domain.Chat, viewerID string) map[string]any {
	view := map[string]any{
		"id":         c.ID,
		"peer_id":    c.Peer(viewerID),
		"closed":     c.Closed,
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
	if c.DonationID != nil {
		view["donation_id"] = *c.DonationID
	}
	if c.LastMessageAt != nil {
		view["last_message_at"] = c.LastMessageAt.Format(time.RFC3339)
	}
	return view
}

func messageView(m *domain.Message) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"chat_id":    m.ChatID,
		"sender_id":  m.SenderID,
		"body":       m.Body,
		"created_at": m.CreatedAt.Format(time.RFC3339Nano),
	}
}
