// internal/handlers/router.go
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/fittogether/internal/accounts"
	"github.com/jason-s-yu/fittogether/internal/events"
	"github.com/jason-s-yu/fittogether/internal/metrics"
	"github.com/jason-s-yu/fittogether/internal/middleware"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/jason-s-yu/fittogether/internal/posts"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Logger   *logrus.Logger
	Engine   *partner.Engine
	Accounts *accounts.Service
	Posts    *posts.Service
	Hub      *events.Hub
	Auth     middleware.Authenticator

	TokenTTL          time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string
	// StaticDir is served under /static/ when set.
	StaticDir string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LogMiddleware(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(middleware.RateLimit(d.RateLimitRequests, d.RateLimitWindow))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	if d.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(d.StaticDir))))
	}

	r.Post("/users", CreateUserHandler(d.Logger, d.Accounts))
	r.Post("/users/login", LoginHandler(d.Logger, d.Accounts, d.TokenTTL))
	r.Get("/ws/notifications", NotificationsWSHandler(d.Logger, d.Hub, d.Auth, d.CORSOrigins))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(d.Auth))

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", GetUserHandler(d.Logger, d.Accounts))
			r.Delete("/", DeleteUserHandler(d.Logger, d.Accounts))
			r.Put("/avatar", UploadAvatarHandler(d.Logger, d.Accounts))
			r.Get("/posts", ListPostsHandler(d.Logger, d.Posts))
			r.Get("/partners", ListPartnersHandler(d.Logger, d.Engine))
			r.Delete("/partners/{partnerId}", RemovePartnerHandler(d.Logger, d.Engine))
			r.Get("/partner-requests", ListIncomingRequestsHandler(d.Logger, d.Engine))
			r.Get("/partner-requests/outgoing", ListOutgoingRequestsHandler(d.Logger, d.Engine))
		})

		r.Post("/partner-requests", SubmitPartnerRequestHandler(d.Logger, d.Engine))
		r.Put("/partner-requests/{id}", RespondPartnerRequestHandler(d.Logger, d.Engine))

		r.Post("/posts", CreatePostHandler(d.Logger, d.Posts))
		r.Delete("/posts/{id}", DeletePostHandler(d.Logger, d.Posts))
	})

	return r
}
