// internal/app/features/ratelimitdebug/handler.go
package ratelimitdebug

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/limits"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler exposes the caller's rate-limit state. Reset works only when the
// gate runs in dev mode.
type Handler struct {
	Gate *ratelimit.Gate
	Env  string
	Log  *zap.Logger
}

func NewHandler(gate *ratelimit.Gate, env string, logger *zap.Logger) *Handler {
	return &Handler{Gate: gate, Env: env, Log: logger}
}

type bucketStatus struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Allowed   bool   `json:"allowed"`
	ResetTime string `json:"resetTime"`
}

// ServeStatus handles GET /debug/rate-limit. Nothing is consumed.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	ip, err := ratelimit.ClientIP(r, h.Gate.DevMode())
	if err != nil {
		apperr.Write(w, h.Log, ratelimit.IPError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	status := make(map[ratelimit.Bucket]bucketStatus, len(ratelimit.Buckets))
	for _, b := range ratelimit.Buckets {
		d, err := h.Gate.Peek(ctx, b, ip)
		if err != nil {
			apperr.Write(w, h.Log, ratelimit.UnavailableError(err))
			return
		}
		status[b] = bucketStatus{
			Limit:     d.Limit,
			Remaining: d.Remaining,
			Allowed:   d.Allowed,
			ResetTime: d.ResetAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}

	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"ipDetection": map[string]string{
			"resolved":       ip,
			"forwarded":      r.Header.Get("X-Forwarded-For"),
			"realIP":         r.Header.Get("X-Real-IP"),
			"cfConnectingIP": r.Header.Get("CF-Connecting-IP"),
			"remoteAddr":     r.RemoteAddr,
		},
		"rateLimitStatus": status,
		"environment":     h.Env,
		"message":         "Use POST /debug/rate-limit to reset rate limits in development",
	})
}

type resetRequest struct {
	Bucket    string `json:"limiterType"`
	IPAddress string `json:"ipAddress"`
}

// ServeReset handles POST /debug/rate-limit with
// {"limiterType":"submission","ipAddress":"…"}; both fields are optional.
func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	if !h.Gate.DevMode() {
		apperr.WriteJSON(w, http.StatusForbidden, map[string]string{
			"status":  "error",
			"message": "Rate limit reset is not allowed in production",
		})
		return
	}

	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxSmallJSON)).Decode(&req); err != nil {
			apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid request body"})
			return
		}
	}
	bucket := ratelimit.Bucket(req.Bucket)
	if bucket == "" {
		bucket = ratelimit.BucketSubmission
	}

	ip := req.IPAddress
	if ip == "" {
		var err error
		if ip, err = ratelimit.ClientIP(r, true); err != nil {
			apperr.Write(w, h.Log, ratelimit.IPError(err))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Gate.Reset(ctx, bucket, ip); err != nil {
		if errors.Is(err, ratelimit.ErrUnknownBucket) {
			apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Unknown limiter type"})
			return
		}
		h.Log.Error("rate limit reset failed", zap.Error(err))
		apperr.WriteJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Failed to reset rate limit"})
		return
	}

	h.Log.Info("rate limit reset", zap.String("bucket", string(bucket)), zap.String("ip", ip))
	apperr.WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"message":     "Rate limit reset successfully for " + string(bucket),
		"limiterType": string(bucket),
		"ipAddress":   ip,
	})
}
