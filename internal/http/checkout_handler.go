package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/checkout"
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Consumers define this interface
type CheckoutService interface {
	Checkout(ctx context.Context, sessionID string, customer domain.CustomerInfo, paymentRef, idempotencyKey string) (*domain.Order, error)
}

type OrderReader interface {
	GetSessionOrder(ctx context.Context, sessionID, id string) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout       CheckoutService
	orders         OrderReader
	whatsAppNumber string
	log            *zap.Logger
	timeout        time.Duration
}

func NewCheckoutHandler(svc CheckoutService, orders OrderReader, whatsAppNumber string, log *zap.Logger, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:       svc,
		orders:         orders,
		whatsAppNumber: whatsAppNumber,
		log:            log,
		timeout:        timeout,
	}
}

type CheckoutRequestDTO struct {
	Customer         domain.CustomerInfo `json:"customer"`
	PaymentReference string              `json:"payment_reference"`
}

type CheckoutResponse struct {
	Order   *domain.Order    `json:"order"`
	Handoff checkout.Handoff `json:"handoff"`
}

// Checkout places the order for the session's cart. Clients may send an
// Idempotency-Key header to make retries safe.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.checkout.Checkout(ctx, getSessionID(r.Context()), req.Customer, req.PaymentReference, r.Header.Get("Idempotency-Key"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, &CheckoutResponse{
		Order:   order,
		Handoff: checkout.NewHandoff(h.whatsAppNumber, order),
	})
}

// GetOrder shows an order to the visitor who placed it. Orders from other
// sessions are reported as not found.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetSessionOrder(ctx, getSessionID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
