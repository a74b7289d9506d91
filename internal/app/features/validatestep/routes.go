// internal/app/features/validatestep/routes.go
package validatestep

import (
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /validate-step behind the validation bucket.
func Routes(h *Handler, gate *ratelimit.Gate) chi.Router {
	r := chi.NewRouter()
	r.With(gate.Middleware(ratelimit.BucketValidation)).Post("/", h.Serve)
	return r
}
