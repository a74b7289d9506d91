// internal/app/features/ratelimitdebug/routes.go
package ratelimitdebug

import "github.com/go-chi/chi/v5"

// Routes is mounted under /debug/rate-limit.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeStatus)
	r.Post("/", h.ServeReset)
	return r
}
