// internal/app/features/registrations/routes.go
package registrations

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /registrations. Rate limiting happens inside the
// orchestrator so the submission and access buckets are not consumed twice.
// submit middleware (the registration window) wraps only the POST.
func Routes(h *Handler, submit ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(submit...).Post("/", h.ServeCreate)
	r.Get("/", h.ServeAvailability)
	return r
}
