// Package gates holds route-level switches that open and close parts of
// the API without a redeploy.
//
// A Window describes when registration accepts submissions. It is applied
// as middleware on the submitting routes only: availability checks, step
// validation and the wizard's own state keep working while registration
// is closed, so a visitor sees why their submit was refused.
package gates

import (
	"net/http"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/apperr"
)

// Window bounds registration in time. Zero bounds are open-ended; Closed
// shuts registration regardless of the bounds.
type Window struct {
	Closed   bool
	OpensAt  time.Time
	ClosesAt time.Time
}

// OpenAt reports whether registration accepts submissions at t. OpensAt
// is inclusive and ClosesAt exclusive.
func (w Window) OpenAt(t time.Time) bool {
	if w.Closed {
		return false
	}
	if !w.OpensAt.IsZero() && t.Before(w.OpensAt) {
		return false
	}
	if !w.ClosesAt.IsZero() && !t.Before(w.ClosesAt) {
		return false
	}
	return true
}

// Message explains a refusal at t.
func (w Window) Message(t time.Time) string {
	if !w.Closed && !w.OpensAt.IsZero() && t.Before(w.OpensAt) {
		return "Registration opens at " + w.OpensAt.UTC().Format(time.RFC3339) + "."
	}
	return "Registration is closed."
}

// RequireOpen rejects requests with 403 while w is shut. A nil now means
// time.Now.
func RequireOpen(w Window, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			t := now()
			if !w.OpenAt(t) {
				apperr.WriteJSON(rw, http.StatusForbidden, map[string]string{
					"message": w.Message(t),
					"error":   "Registration closed",
				})
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}
