package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// NewRouter assembles the HTTP surface. Everything except the health check
// and static assets requires an authenticated principal.
func NewRouter(app *handlers.App, cfg *infra.Config, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
		middleware.Locale("en", countryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	if app.Store != nil {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Store.BasePath())))
		r.Get("/static/*", fileServer.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))

		r.Route("/v1/me", func(r chi.Router) {
			r.Get("/", app.Me)
			r.Post("/sync", app.MeSync)
			r.Get("/export", app.MeExport)
			r.Delete("/", app.MeDelete)
		})

		r.Route("/v1/donations", func(r chi.Router) {
			r.Get("/", app.DonationsBrowse)
			r.Post("/", app.DonationsCreate)
			r.Get("/mine", app.DonationsMine)
			r.Post("/images", app.DonationsUploadImage)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.DonationsGet)
				r.Post("/request", app.DonationsRequest)
				r.Post("/conclude", app.DonationsConclude)
				r.Post("/report", app.DonationsReport)
				r.Post("/evaluations", app.EvaluationsSubmit)
				r.Get("/evaluations/mine", app.EvaluationsMine)
			})
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", app.NotificationsList)
			r.Get("/unread-count", app.NotificationsUnreadCount)
			r.Post("/{id}/accept", app.NotificationsAccept)
			r.Post("/{id}/decline", app.NotificationsDecline)
			r.Post("/{id}/read", app.NotificationsMarkRead)
		})

		r.Route("/v1/chats", func(r chi.Router) {
			r.Get("/", app.ChatsList)
			r.Get("/{id}/messages", app.ChatMessages)
			r.Post("/{id}/messages", app.ChatSend)
		})

		r.Get("/v1/users/{id}/evaluations", app.EvaluationsForUser)

		r.Get("/v1/ws", app.WSConnect)
	})

	return r
}
