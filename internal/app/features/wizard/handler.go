// internal/app/features/wizard/handler.go
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/limits"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/stepval"
	"github.com/dalemusser/hackreg/internal/app/system/submission"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/dalemusser/hackreg/internal/app/system/wizardsession"
	"github.com/dalemusser/hackreg/internal/domain/models"
	wiz "github.com/dalemusser/hackreg/internal/domain/wizard"
	"go.uber.org/zap"
)

// Handler drives the registration wizard for clients that keep no state
// of their own. Every response carries the current state.
type Handler struct {
	Sessions *wizardsession.Store
	Steps    *stepval.Service
	Orch     *submission.Orchestrator
	Gate     *ratelimit.Gate
	Log      *zap.Logger
}

func NewHandler(sessions *wizardsession.Store, steps *stepval.Service, orch *submission.Orchestrator, gate *ratelimit.Gate, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sessions, Steps: steps, Orch: orch, Gate: gate, Log: logger}
}

type stateResponse struct {
	State   wiz.State           `json:"state"`
	Errors  map[string]string   `json:"errors,omitempty"`
	Receipt *submission.Receipt `json:"receipt,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, resp stateResponse) {
	if err := h.Sessions.Save(w, r, resp.State); err != nil {
		h.Log.Error("wizard session save failed", zap.Error(err))
		apperr.WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to save progress"})
		return
	}
	apperr.WriteJSON(w, status, resp)
}

// ServeState handles GET /wizard.
func (h *Handler) ServeState(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, stateResponse{State: h.Sessions.Load(r)})
}

// ServeFields handles POST /wizard/fields with a flat {"field": "value"}
// object, e.g. {"teamName": "ByteForce", "participant_0_email": "a@x.io"}.
func (h *Handler) ServeFields(w http.ResponseWriter, r *http.Request) {
	var changes map[string]string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxWizardFields)).Decode(&changes); err != nil {
		apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	st := h.Sessions.Load(r)
	// Team size first so participant fields for new slots land.
	if v, ok := changes[wiz.FieldTeamSize]; ok {
		next, err := wiz.ApplyFieldChange(st, wiz.FieldTeamSize, v)
		if err != nil {
			apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error(), "field": wiz.FieldTeamSize})
			return
		}
		st = next
		delete(changes, wiz.FieldTeamSize)
	}

	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		next, err := wiz.ApplyFieldChange(st, k, changes[k])
		if err != nil {
			apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error(), "field": k})
			return
		}
		st = next
	}
	h.respond(w, r, http.StatusOK, stateResponse{State: st})
}

// ServeTeamSize handles POST /wizard/team-size with {"teamSize": n}.
func (h *Handler) ServeTeamSize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamSize models.FormValue `json:"teamSize"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxSmallJSON)).Decode(&req); err != nil {
		apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	n, _ := req.TeamSize.Int()

	st, err := wiz.SetTeamSize(h.Sessions.Load(r), n)
	if err != nil {
		apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "Team size must be between 1 and 4"})
		return
	}
	h.respond(w, r, http.StatusOK, stateResponse{State: st})
}

// ServeNext handles POST /wizard/next: client checks, then server step
// validation through the validation bucket.
func (h *Handler) ServeNext(w http.ResponseWriter, r *http.Request) {
	st, ticket, ok := wiz.BeginAdvance(h.Sessions.Load(r))
	if !ok {
		h.respond(w, r, http.StatusOK, stateResponse{State: st, Errors: wiz.ClientErrors(st)})
		return
	}

	if _, err := h.Gate.Check(r, ratelimit.BucketValidation); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res := h.Steps.Validate(ctx, stepRequest(st))
	st = wiz.AdvanceStep(st, ticket, wiz.Outcome{Valid: res.Valid, Errors: res.Errors})
	h.respond(w, r, http.StatusOK, stateResponse{State: st, Errors: res.Errors})
}

// ServeBack handles POST /wizard/back.
func (h *Handler) ServeBack(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, stateResponse{State: wiz.RegressStep(h.Sessions.Load(r))})
}

// ServeReset handles POST /wizard/reset.
func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, stateResponse{State: wiz.ResetAll(h.Sessions.Load(r))})
}

// ServeSubmit handles POST /wizard/submit: a multipart request carrying
// only the idea_document file. Everything else comes from the session.
func (h *Handler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	st := h.Sessions.Load(r)
	if st.Step != wiz.StepIdeaVerification {
		apperr.WriteJSON(w, http.StatusConflict, map[string]any{"message": wiz.ErrNotFinalStep.Error(), "state": st})
		return
	}

	ip, err := ratelimit.ClientIP(r, h.Gate.DevMode())
	if err != nil {
		apperr.Write(w, h.Log, ratelimit.IPError(err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Orch.MaxDocumentBytes()+limits.MultipartOverhead)
	if err := r.ParseMultipartForm(limits.MultipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperr.Write(w, h.Log, apperr.New(apperr.PayloadTooLarge, "Idea document size must be under 5MB.", "File size limit exceeded"))
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	var doc *submission.Document
	if file, hdr, err := r.FormFile("idea_document"); err == nil {
		defer file.Close()
		doc = &submission.Document{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Size:        hdr.Size,
			Body:        file,
		}
		st, _ = wiz.ApplyFieldChange(st, wiz.FieldIdeaDocument, hdr.Filename)
	} else {
		st, _ = wiz.ApplyFieldChange(st, wiz.FieldIdeaDocument, "")
	}

	st, ticket, ok := wiz.BeginAdvance(st)
	if !ok {
		h.respond(w, r, http.StatusOK, stateResponse{State: st, Errors: wiz.ClientErrors(st)})
		return
	}

	participants, err := json.Marshal(st.Participants)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Submit(), h.Log, "wizard submission")
	defer cancel()

	receipt, err := h.Orch.Submit(ctx, submission.Submission{
		IP:           ip,
		TeamName:     st.TeamName,
		TeamSize:     strconv.Itoa(st.TeamSize),
		Participants: string(participants),
		IdeaTitle:    st.IdeaTitle,
		Document:     doc,
	})
	if err != nil {
		e, isApp := apperr.As(err)
		if !isApp {
			e = apperr.Wrap(apperr.Upstream, "An error occurred while processing the request.", "Internal server error", err)
		}
		if e.Kind == apperr.Upstream || e.Kind == apperr.Unavailable {
			h.Log.Error("wizard submission failed", zap.String("code", e.Code), zap.Error(e.Cause))
		}
		for k, vs := range e.Headers {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		st = wiz.AdvanceStep(st, ticket, outcomeFor(e, st.Participants))
		h.respond(w, r, e.Kind.Status(), stateResponse{State: st, Errors: st.ServerErrors})
		return
	}

	st, err = wiz.Complete(st, ticket, receipt.TeamID)
	if err != nil {
		h.Log.Error("wizard completion failed after registration", zap.String("team_id", receipt.TeamID), zap.Error(err))
	}
	h.respond(w, r, http.StatusCreated, stateResponse{State: st, Receipt: &receipt})
}

// stepRequest builds the step validation input for the current step.
func stepRequest(st wiz.State) stepval.Request {
	switch st.Step {
	case wiz.StepTeamInfo:
		return stepval.TeamInfo{TeamName: st.TeamName, TeamSize: models.FormValue(strconv.Itoa(st.TeamSize))}
	case wiz.StepParticipantDetails:
		return stepval.ParticipantDetails{Participants: st.Participants}
	case wiz.StepProfessionalProfiles:
		return stepval.ProfessionalProfiles{Participants: st.Participants}
	case wiz.StepIdeaVerification:
		return stepval.IdeaVerification{IdeaTitle: st.IdeaTitle}
	}
	return stepval.UnknownStep{Raw: strconv.Itoa(st.Step)}
}

// outcomeFor turns a submission failure into field errors where a field
// is to blame, or a banner otherwise.
func outcomeFor(e *apperr.Error, ps []models.ParticipantInput) wiz.Outcome {
	switch e.Code {
	case "Duplicate team name", "Missing required fields", "Invalid team size":
		return wiz.Outcome{Errors: map[string]string{wiz.FieldTeamName: e.Message}}
	case "Missing idea title":
		return wiz.Outcome{Errors: map[string]string{wiz.FieldIdeaTitle: e.Message}}
	case "Missing idea document", "Invalid document format", "File size limit exceeded":
		return wiz.Outcome{Errors: map[string]string{wiz.FieldIdeaDocument: e.Message}}
	}
	if _, ok := e.Details["participant_errors"]; ok {
		if errs := submission.CheckParticipantFields(ps); len(errs) > 0 {
			return wiz.Outcome{Errors: errs}
		}
		return wiz.Outcome{Err: errors.New(e.Message)}
	}
	if dups, ok := e.Details["duplicate_emails"].([]string); ok && len(dups) > 0 {
		return wiz.Outcome{Err: fmt.Errorf("%s (%v)", e.Message, dups)}
	}
	return wiz.Outcome{Err: errors.New(e.Message)}
}
