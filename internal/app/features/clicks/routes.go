// internal/app/features/clicks/routes.go
package clicks

import (
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes registers POST /click-tracking and GET /click-stats on r.
func Routes(r chi.Router, h *Handler, gate *ratelimit.Gate) {
	r.With(gate.Middleware(ratelimit.BucketGeneral)).Post("/click-tracking", h.ServeTrack)
	r.With(gate.Middleware(ratelimit.BucketGeneral)).Get("/click-stats", h.ServeStats)
}
