// internal/app/system/ratelimit/middleware.go
package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/apperr"
)

// resetLayout matches JavaScript's Date.toISOString, which browser clients
// parse directly.
const resetLayout = "2006-01-02T15:04:05.000Z07:00"

// DeniedError converts a denied decision into the 429 error the API
// returns, including the X-RateLimit-* and Retry-After headers.
func DeniedError(d Decision) *apperr.Error {
	retry := d.RetryAfterSeconds()
	reset := d.ResetAt.UTC().Format(resetLayout)

	h := http.Header{}
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", reset)
	h.Set("Retry-After", strconv.Itoa(retry))

	e := apperr.New(apperr.RateLimited, "Too many requests. Please try again later.", "Rate limit exceeded").
		With("status", "error").
		With("details", map[string]any{
			"limit":      d.Limit,
			"remaining":  d.Remaining,
			"resetTime":  reset,
			"retryAfter": retry,
		})
	e.Headers = h
	return e
}

// IPError is returned when the caller's address cannot be resolved.
func IPError(err error) *apperr.Error {
	return apperr.Wrap(apperr.Validation, "Unable to process request", "IP detection failed", err).
		With("status", "error")
}

// UnavailableError is returned when the gate fails closed.
func UnavailableError(err error) *apperr.Error {
	return apperr.Wrap(apperr.Unavailable, "Unable to process request right now. Please try again shortly.", "Rate limit service unavailable", err).
		With("status", "error")
}

// Check resolves the caller IP and consumes one point from bucket b,
// translating every failure into an *apperr.Error.
func (g *Gate) Check(r *http.Request, b Bucket) (Decision, error) {
	ip, err := ClientIP(r, g.dev)
	if err != nil {
		return Decision{}, IPError(err)
	}
	d, err := g.Consume(r.Context(), b, ip)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return Decision{}, UnavailableError(err)
		}
		return Decision{}, apperr.Wrap(apperr.Upstream, "Unable to process request", "Rate limit check failed", err)
	}
	if !d.Allowed {
		return d, DeniedError(d)
	}
	return d, nil
}

// Middleware gates every request through bucket b. Allowed responses carry
// the current X-RateLimit-Limit and X-RateLimit-Remaining.
func (g *Gate) Middleware(b Bucket) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := g.Check(r, b)
			if err != nil {
				apperr.Write(w, g.log, err)
				return
			}
			SetHeaders(w, d)
			next.ServeHTTP(w, r)
		})
	}
}

// SetHeaders writes the informational quota headers for an allowed request.
func SetHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() && d.ResetAt.After(time.Time{}) {
		w.Header().Set("X-RateLimit-Reset", d.ResetAt.UTC().Format(resetLayout))
	}
}
