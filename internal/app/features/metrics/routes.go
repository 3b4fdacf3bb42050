// internal/app/features/metrics/routes.go
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a chi.Router with the metrics endpoints mounted.
// Authentication and CORS are applied by the caller.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Summary)
	r.Get("/accounts/logins", h.Logins)
	r.Get("/filters", h.GetFilters)
	r.Put("/filters", h.PutFilters)
	r.Post("/refresh", h.Refresh)
	r.Get("/{kind}", h.Domain)
	r.Get("/{kind}/records", h.Records)
	return r
}
