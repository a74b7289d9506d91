// internal/app/features/clicks/handler.go
package clicks

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	clickstore "github.com/dalemusser/hackreg/internal/app/store/clicks"
	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/iphash"
	"github.com/dalemusser/hackreg/internal/app/system/limits"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/dalemusser/hackreg/internal/domain/models"
	"go.uber.org/zap"
)

// Store is the persistence surface for click events.
type Store interface {
	Insert(ctx context.Context, ev models.ClickEvent) (models.ClickEvent, error)
	Stats(ctx context.Context, now time.Time) (clickstore.Stats, error)
}

type Handler struct {
	Clicks  Store
	Hasher  *iphash.Hasher
	DevMode bool
	Log     *zap.Logger
	Now     func() time.Time
}

func NewHandler(clicks Store, hasher *iphash.Hasher, devMode bool, logger *zap.Logger) *Handler {
	return &Handler{Clicks: clicks, Hasher: hasher, DevMode: devMode, Log: logger, Now: time.Now}
}

type trackRequest struct {
	ButtonType string `json:"buttonType"`
	UserAgent  string `json:"userAgent"`
	Referrer   string `json:"referrer"`
}

// ServeTrack handles POST /click-tracking.
func (h *Handler) ServeTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxClickBody)).Decode(&req); err != nil {
		apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if !slices.Contains(models.ButtonTypes, req.ButtonType) {
		apperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid button type"})
		return
	}

	ip, _ := ratelimit.ClientIP(r, h.DevMode)
	ua := req.UserAgent
	if ua == "" {
		ua = r.UserAgent()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, err := h.Clicks.Insert(ctx, models.ClickEvent{
		ButtonType: req.ButtonType,
		UserAgent:  ua,
		IPHash:     h.Hasher.Hash(ip),
		Referrer:   req.Referrer,
	})
	if err != nil {
		h.Log.Error("click insert failed", zap.Error(err))
		apperr.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to track click"})
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Click tracked successfully",
		"clickId": ev.ID.Hex(),
	})
}

type recentClick struct {
	ButtonType string    `json:"buttonType"`
	CreatedAt  time.Time `json:"createdAt"`
	IPHash     string    `json:"ipHash"`
	UserAgent  string    `json:"userAgent"`
}

// ServeStats handles GET /click-stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.Clicks.Stats(ctx, h.Now())
	if err != nil {
		h.Log.Error("click stats failed", zap.Error(err))
		apperr.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch click statistics"})
		return
	}

	recent := make([]recentClick, 0, len(st.Recent))
	for _, ev := range st.Recent {
		recent = append(recent, recentClick{
			ButtonType: ev.ButtonType,
			CreatedAt:  ev.CreatedAt,
			IPHash:     ev.IPHash,
			UserAgent:  ev.UserAgent,
		})
	}
	byDay := st.ByDay
	if byDay == nil {
		byDay = []clickstore.DayCount{}
	}
	byType := st.ByType
	if byType == nil {
		byType = map[string]int64{}
	}

	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"totalClicks":  st.Total,
		"clicksByType": byType,
		"clicksByDate": byDay,
		"recentClicks": recent,
	})
}
