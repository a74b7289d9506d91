// internal/app/features/validatestep/handler.go
package validatestep

import (
	"context"
	"io"
	"net/http"

	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/limits"
	"github.com/dalemusser/hackreg/internal/app/system/stepval"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Steps *stepval.Service
	Log   *zap.Logger
}

func NewHandler(steps *stepval.Service, logger *zap.Logger) *Handler {
	return &Handler{Steps: steps, Log: logger}
}

// Serve handles POST /validate-step. The status is 200 whether or not the
// step is valid; "valid" in the body carries the verdict.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limits.MaxStepBody))
	if err != nil {
		h.writeBadBody(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Steps.ValidateBody(ctx, body)
	if err != nil {
		h.writeBadBody(w)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) writeBadBody(w http.ResponseWriter) {
	apperr.WriteJSON(w, http.StatusBadRequest, stepval.Result{
		Valid:   false,
		Errors:  map[string]string{"request": "Invalid request body"},
		Message: "Validation failed",
	})
}
