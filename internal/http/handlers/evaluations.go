package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type evaluationRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func (a *App) EvaluationsSubmit(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	evaluation, err := a.Exchange.SubmitEvaluation(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"), req.Stars, req.Comment)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, evaluationView(evaluation))
}

// EvaluationsMine reports whether the caller already rated the donation.
func (a *App) EvaluationsMine(w http.ResponseWriter, r *http.Request) {
	submitted, err := a.Exchange.EvaluationStatus(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"submitted": submitted})
}

func (a *App) EvaluationsForUser(w http.ResponseWriter, r *http.Request) {
	items, err := a.Exchange.EvaluationsFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, evaluationView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

func evaluationView(e *domain.Evaluation) map[string]any {
	return map[string]any{
		"donation_id": e.DonationID,
		"from_user":   e.FromUser,
		"to_user":     e.ToUser,
		"stars":       e.Stars,
		"comment":     e.Comment,
		"created_at":  e.CreatedAt.Format(time.RFC3339),
	}
}
