package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/exchange"
	"server/internal/middleware"
	"server/internal/storage"
)

type donationCreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	OtherType   string   `json:"other_type"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ImageURL    string   `json:"image_url"`
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	donation, err := a.Exchange.CreateDonation(r.Context(), a.currentUserID(r), exchange.DonationInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.DonationType(req.Type),
		OtherType:   req.OtherType,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Country:     middleware.CountryFromContext(r.Context()),
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, donationView(donation))
}

func (a *App) DonationsBrowse(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := a.Exchange.BrowseDonations(r.Context(), a.currentUserID(r), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": donationViews(items)})
}

func (a *App) DonationsMine(w http.ResponseWriter, r *http.Request) {
	items, err := a.Exchange.OwnDonations(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": donationViews(items)})
}

func (a *App) DonationsGet(w http.ResponseWriter, r *http.Request) {
	donation, err := a.Exchange.GetDonation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, donationView(donation))
}

type donationRequestRequest struct {
	Message string `json:"message"`
}

func (a *App) DonationsRequest(w http.ResponseWriter, r *http.Request) {
	var req donationRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	notification, err := a.Exchange.RequestDonation(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"notification_id": notification.ID,
		"status":          notification.Status,
	})
}

func (a *App) DonationsConclude(w http.ResponseWriter, r *http.Request) {
	donation, err := a.Exchange.Conclude(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, donationView(donation))
}

func (a *App) DonationsReport(w http.ResponseWriter, r *http.Request) {
	if err := a.Exchange.Report(r.Context(), a.currentUserID(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "reported"})
}

const maxImageBytes = 8 << 20

// DonationsUploadImage stores a donation photo and returns the key to embed
// as image_url on creation.
func (a *App) DonationsUploadImage(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		a.error(w, http.StatusServiceUnavailable, "storage_unavailable", "image storage not configured")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds size limit")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "empty body")
		return
	}
	saved, err := a.Store.SaveImage(r.Context(), a.currentUserID(r), r.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			a.error(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "image type not accepted")
			return
		}
		a.fail(w, err)
		return
	}
	resp := map[string]string{"key": saved}
	if a.StaticBaseURL != "" {
		resp["url"] = strings.TrimRight(a.StaticBaseURL, "/") + "/" + saved
	}
	a.json(w, http.StatusCreated, resp)
}

func donationView(d *domain.Donation) map[string]any {
	view := map[string]any{
		"id":           d.ID,
		"owner_id":     d.OwnerID,
		"title":        d.Title,
		"description":  d.Description,
		"type":         d.Type,
		"location":     d.Location,
		"country":      d.Country,
		"image_url":    d.ImageURL,
		"status":       d.Status,
		"report_count": d.ReportCount,
		"created_at":   d.CreatedAt.Format(time.RFC3339),
	}
	if d.Type == domain.DonationTypeOther {
		view["other_type"] = d.OtherType
	}
	if d.Latitude != nil && d.Longitude != nil {
		view["latitude"] = *d.Latitude
		view["longitude"] = *d.Longitude
	}
	if d.BeneficiaryID != nil {
		view["beneficiary_id"] = *d.BeneficiaryID
	}
	if d.ReservedAt != nil {
		view["reserved_at"] = d.ReservedAt.Format(time.RFC3339)
	}
	if d.ExpiresAt != nil {
		view["expires_at"] = d.ExpiresAt.Format(time.RFC3339)
	}
	if d.ConcludedAt != nil {
		view["concluded_at"] = d.ConcludedAt.Format(time.RFC3339)
	}
	return view
}

func donationViews(items []domain.Donation) []map[string]any {
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, donationView(&items[i]))
	}
	return views
}
