package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/cooking-backend/internal/hub"
	"github.com/DoyleJ11/cooking-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

func SetupRoutes(h *hub.Hub, cfg ws.Config) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)

	// Read-only JSON is open to browser frontends; /ws checks origins itself.
	r.Group(func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedMethods: []string{http.MethodHead, http.MethodGet},
			AllowedOrigins: []string{"*"},
		}).Handler)
		r.Get("/recipes", ListRecipes(cfg.Catalog))
		r.Get("/stats", Stats(h, cfg.Scheduler))
	})

	r.Get("/ws", ws.Handler(h, cfg))
	return r
}
