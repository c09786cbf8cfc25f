package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"go.uber.org/zap"
)

// Consumers define this interface
type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.SiteSettings, error)
	SaveSettings(ctx context.Context, s domain.SiteSettings) error
}

type SettingsHandler struct {
	settings SettingsStore
	log      *zap.Logger
	timeout  time.Duration
	maxBody  int64
}

func NewSettingsHandler(settings SettingsStore, log *zap.Logger, timeout time.Duration, maxBody int64) *SettingsHandler {
	return &SettingsHandler{settings: settings, log: log, timeout: timeout, maxBody: maxBody}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.settings.GetSettings(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// Update applies a JSON array of {"op": ..., "value": ...} updates. Either
// every update applies or none does.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "request body too large or unreadable")
		return
	}
	updates, err := domain.DecodeSettingsUpdates(body)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	current, err := h.settings.GetSettings(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	next, err := domain.ApplySettingsUpdates(current, updates...)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if err := h.settings.SaveSettings(ctx, next); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	ops := make([]string, len(updates))
	for i, u := range updates {
		ops[i] = u.Op()
	}
	h.log.Info("site settings updated", zap.Strings("ops", ops))
	respondJSON(w, http.StatusOK, next)
}
