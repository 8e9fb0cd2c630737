package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/cooking-backend/internal/catalog"
	"github.com/DoyleJ11/cooking-backend/internal/hub"
	"github.com/DoyleJ11/cooking-backend/internal/timer"
)

func ListRecipes(c catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := c.Names(r.Context())
		if err != nil {
			http.Error(w, "failed to list recipes", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Recipes []string `json:"recipes"`
		}{Recipes: names})
	}
}

func Stats(h *hub.Hub, s *timer.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Sessions int `json:"sessions"`
			Timers   int `json:"timers"`
		}{Sessions: h.Count(), Timers: s.Active()})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
