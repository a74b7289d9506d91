// internal/app/features/colleges/routes.go
package colleges

import (
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /colleges.
func Routes(h *Handler, gate *ratelimit.Gate) chi.Router {
	r := chi.NewRouter()
	r.With(gate.Middleware(ratelimit.BucketGeneral)).Get("/", h.ServeList)
	r.With(gate.Middleware(ratelimit.BucketCollegeCreation)).Post("/", h.ServeCreate)
	return r
}
