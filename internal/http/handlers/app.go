package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/exchange"
	"server/internal/middleware"
	"server/internal/storage"
	"server/internal/ws"
)

// App bundles the dependencies of the HTTP handlers.
type App struct {
	Exchange *exchange.Service
	Hub      *ws.Hub
	Store    *storage.FileStore
	Logger   zerolog.Logger

	// StaticBaseURL prefixes uploaded image keys in responses when set.
	StaticBaseURL string
}

func NewApp(exchangeSvc *exchange.Service, hub *ws.Hub, store *storage.FileStore, logger zerolog.Logger) *App {
	return &App{Exchange: exchangeSvc, Hub: hub, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// fail translates domain errors into their HTTP shape. Precondition
// violations keep their typed code so clients can react to them.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusForbidden, "quota_exceeded", "no entitlement units left")
	case errors.Is(err, domain.ErrSelfRequest):
		a.error(w, http.StatusConflict, "self_request", "cannot request your own donation")
	case errors.Is(err, domain.ErrDuplicateChat):
		a.error(w, http.StatusConflict, "duplicate_chat", "a chat already links these participants")
	case errors.Is(err, domain.ErrDuplicateRequest):
		a.error(w, http.StatusConflict, "duplicate_request", "request already pending for this donation")
	case errors.Is(err, domain.ErrAlreadyEvaluated):
		a.error(w, http.StatusConflict, "already_evaluated", "evaluation already submitted")
	case errors.Is(err, domain.ErrChatClosed):
		a.error(w, http.StatusConflict, "chat_closed", "chat is closed")
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, http.StatusConflict, "invalid_state", "operation not allowed in the current state")
	case errors.Is(err, domain.ErrNotAuthorized):
		a.error(w, http.StatusForbidden, "not_authorized", "not allowed for this user")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("handlers: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
