// internal/app/features/wizard/routes.go
package wizard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /wizard. submit middleware wraps only /submit.
func Routes(h *Handler, submit ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeState)
	r.Post("/fields", h.ServeFields)
	r.Post("/team-size", h.ServeTeamSize)
	r.Post("/next", h.ServeNext)
	r.Post("/back", h.ServeBack)
	r.Post("/reset", h.ServeReset)
	r.With(submit...).Post("/submit", h.ServeSubmit)
	return r
}
