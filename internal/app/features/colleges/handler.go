// internal/app/features/colleges/handler.go
package colleges

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	collegestore "github.com/dalemusser/hackreg/internal/app/store/colleges"
	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackreg/internal/app/system/limits"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

// searchLimit caps one directory page.
const searchLimit = 200

type Handler struct {
	Colleges collegestore.Directory
	Log      *zap.Logger
}

func NewHandler(colleges collegestore.Directory, logger *zap.Logger) *Handler {
	return &Handler{Colleges: colleges, Log: logger}
}

type collegeJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServeList handles GET /colleges?search=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	found, err := h.Colleges.Search(ctx, r.URL.Query().Get("search"), searchLimit)
	if err != nil {
		h.Log.Error("college search failed", zap.Error(err))
		apperr.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": "Failed to fetch colleges",
		})
		return
	}

	out := make([]collegeJSON, 0, len(found))
	for _, c := range found {
		out = append(out, collegeJSON{ID: c.ID.Hex(), Name: c.Name})
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"colleges": out,
		"total":    len(out),
	})
}

// ServeCreate handles POST /colleges with {"name": "..."}.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxSmallJSON)).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(htmlsanitize.PlainText(req.Name))
	if name == "" {
		writeStatus(w, http.StatusBadRequest, "College name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	exists, err := h.Colleges.ExistsByNameCI(ctx, text.Fold(name))
	if err != nil {
		h.Log.Error("college lookup failed", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError, "Failed to add college")
		return
	}
	if exists {
		writeStatus(w, http.StatusConflict, "College already exists")
		return
	}

	c, err := h.Colleges.Create(ctx, name)
	if err != nil {
		if errors.Is(err, collegestore.ErrEmptyName) {
			writeStatus(w, http.StatusBadRequest, "College name is required")
			return
		}
		h.Log.Error("college create failed", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError, "Failed to add college")
		return
	}

	h.Log.Info("college added", zap.String("college", c.Name))
	apperr.WriteJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "College added successfully",
		"college": collegeJSON{ID: c.ID.Hex(), Name: c.Name},
	})
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	apperr.WriteJSON(w, status, map[string]string{"status": "error", "message": msg})
}
