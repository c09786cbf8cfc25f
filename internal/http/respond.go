package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mohaabaprint/Teetot-Print/internal/auth"
	"github.com/Mohaabaprint/Teetot-Print/internal/cart"
	"github.com/Mohaabaprint/Teetot-Print/internal/checkout"
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/imaging"
	"github.com/Mohaabaprint/Teetot-Print/internal/logger"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already sent, nothing useful can be done on failure
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondPNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleError maps service errors to HTTP status codes.
func handleError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		status int
		code   string
	)

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidSize),
		errors.Is(err, checkout.ErrInvalidCustomer),
		errors.Is(err, domain.ErrUnknownSettingsUpdate),
		errors.Is(err, domain.ErrInvalidSettingsUpdate):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, cart.ErrDesignNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrDesignNotFound),
		errors.Is(err, repository.ErrImageNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, checkout.ErrEmptyCart):
		status, code = http.StatusConflict, "empty_cart"
	case errors.Is(err, checkout.ErrProductNotFound):
		status, code = http.StatusConflict, "stale_cart"
	case errors.Is(err, imaging.ErrSuperseded):
		status, code = http.StatusConflict, "superseded"
	case errors.Is(err, imaging.ErrDecodeFailed):
		status, code = http.StatusUnprocessableEntity, "decode_failed"
	case errors.Is(err, imaging.ErrEncodeFailed):
		status, code = http.StatusInternalServerError, "encode_failed"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, auth.ErrAdminDisabled):
		status, code = http.StatusForbidden, "admin_disabled"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		status, code = http.StatusRequestTimeout, "canceled"
	default:
		logger.WithContext(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, status, code, err.Error())
}
