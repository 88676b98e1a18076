package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/auth"
	"github.com/vasiliy-maslov/groupbuy-service/internal/handler"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Users         *handler.UserHandler
	Catalog       *handler.CatalogHandler
	Orders        *handler.OrderHandler
	Notifications *handler.NotificationHandler
	Pages         *handler.PageHandler
	Uploads       *handler.UploadHandler
}

func NewRouter(h Handlers, tokens *auth.Tokens, db Pinger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	h.Users.RegisterPublicRoutes(r)
	h.Catalog.RegisterPublicRoutes(r)
	h.Pages.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		h.Users.RegisterUserRoutes(r)
		h.Orders.RegisterUserRoutes(r)
		h.Notifications.RegisterUserRoutes(r)
		h.Uploads.RegisterUserRoutes(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			h.Catalog.RegisterAdminRoutes(r)
			h.Orders.RegisterAdminRoutes(r)
			h.Notifications.RegisterAdminRoutes(r)
			h.Pages.RegisterAdminRoutes(r)
		})
	})

	return r
}
