package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"server/internal/domain"
	"server/internal/exchange"
	"server/internal/middleware"
	"server/pkg/archive"
)

// Me returns the caller's profile, provisioning the account from the token
// claims on first sight.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	user, err := a.Exchange.Profile(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = a.syncFromClaims(r)
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, userView(user))
}

// MeSync refreshes the profile from the identity collaborator's claims.
func (a *App) MeSync(w http.ResponseWriter, r *http.Request) {
	user, err := a.syncFromClaims(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, userView(user))
}

func (a *App) syncFromClaims(r *http.Request) (*domain.User, error) {
	claims := middleware.ClaimsFromContext(r.Context())
	in := exchange.ProfileInput{Locale: middleware.LocaleFromContext(r.Context())}
	if claims != nil {
		in.Email = claims.Email
		in.Name = claims.Name
		in.AvatarURL = claims.AvatarURL
		if claims.Locale != "" {
			in.Locale = claims.Locale
		}
	}
	return a.Exchange.SyncProfile(r.Context(), a.currentUserID(r), in)
}

// MeExport bundles the caller's exchange data into a zip download.
func (a *App) MeExport(w http.ResponseWriter, r *http.Request) {
	export, err := a.Exchange.ExportAccount(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	files := make([]archive.File, 0, 4)
	for name, v := range map[string]any{
		"profile.json":     export.User,
		"donations.json":   export.Donations,
		"evaluations.json": export.Evaluations,
		"chats.json":       export.Chats,
	} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			a.fail(w, err)
			return
		}
		files = append(files, archive.File{Name: name, Data: data})
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="account-export.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Build(files))
}

// MeDelete removes the caller's account and everything it owns.
func (a *App) MeDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Exchange.DeleteAccount(r.Context(), a.currentUserID(r)); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func userView(u *domain.User) map[string]any {
	return map[string]any{
		"id":             u.ID,
		"email":          u.Email,
		"name":           u.Name,
		"avatar_url":     u.AvatarURL,
		"locale":         u.Locale,
		"requests_left":  u.RequestsLeft,
		"donations_left": u.DonationsLeft,
		"created_at":     u.CreatedAt.Format(time.RFC3339),
	}
}
