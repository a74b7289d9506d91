// internal/app/features/registrations/handler.go
package registrations

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/limits"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/submission"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves team registration and team-name availability.
type Handler struct {
	Orch    *submission.Orchestrator
	DevMode bool
	Log     *zap.Logger
}

func NewHandler(orch *submission.Orchestrator, devMode bool, logger *zap.Logger) *Handler {
	return &Handler{Orch: orch, DevMode: devMode, Log: logger}
}

var errBodyTooLarge = apperr.New(apperr.PayloadTooLarge, "Idea document size must be under 5MB.", "File size limit exceeded")

// ServeCreate handles POST /registrations (multipart/form-data).
//
// 201 on success:
//
//	{ "message":"Team registration successful!", "team_id":"…", "team_name":"…",
//	  "participants_count":2, "registration_date":"…" }
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	ip, err := ratelimit.ClientIP(r, h.DevMode)
	if err != nil {
		apperr.Write(w, h.Log, ratelimit.IPError(err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Orch.MaxDocumentBytes()+limits.MultipartOverhead)
	if err := r.ParseMultipartForm(limits.MultipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperr.Write(w, h.Log, errBodyTooLarge)
			return
		}
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Validation, "Invalid form data.", "Invalid request body", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sub := submission.Submission{
		IP:           ip,
		TeamName:     r.FormValue("team_name"),
		TeamSize:     r.FormValue("team_size"),
		Participants: r.FormValue("participants"),
		IdeaTitle:    r.FormValue("idea_title"),
	}
	if file, hdr, err := r.FormFile("idea_document"); err == nil {
		defer file.Close()
		sub.Document = &submission.Document{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Size:        hdr.Size,
			Body:        file,
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Submit(), h.Log, "team registration")
	defer cancel()

	receipt, err := h.Orch.Submit(ctx, sub)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, receipt)
}

// ServeAvailability handles GET /registrations?team_name=X.
func (h *Handler) ServeAvailability(w http.ResponseWriter, r *http.Request) {
	ip, err := ratelimit.ClientIP(r, h.DevMode)
	if err != nil {
		apperr.Write(w, h.Log, ratelimit.IPError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Orch.CheckAvailability(ctx, ip, r.URL.Query().Get("team_name"))
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}
