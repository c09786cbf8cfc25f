package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/auth"
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Consumers define this interface
type AdminAuthenticator interface {
	Login(password string) (*auth.Session, error)
	Logout(token string)
}

type OrderAdmin interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	DeleteOrder(ctx context.Context, id string) error
}

type Resetter interface {
	Reset(ctx context.Context) error
}

type AdminHandler struct {
	auth     AdminAuthenticator
	orders   OrderAdmin
	images   ImageLibrary
	resetter Resetter
	limiter  *keyedLimiter
	log      *zap.Logger
	timeout  time.Duration
}

func NewAdminHandler(authn AdminAuthenticator, orders OrderAdmin, images ImageLibrary, resetter Resetter, log *zap.Logger, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		auth:     authn,
		orders:   orders,
		images:   images,
		resetter: resetter,
		limiter:  newKeyedLimiter(rate.Every(6*time.Second), 5),
		log:      log,
		timeout:  timeout,
	}
}

type LoginRequestDTO struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UpdateOrderStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

type UpdatePaymentStatusRequestDTO struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientIP(r)) {
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many login attempts")
		return
	}

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := h.auth.Login(req.Password)
	if err != nil {
		h.log.Warn("admin login rejected", zap.String("remote", clientIP(r)), zap.Error(err))
		handleError(w, r, h.log, err)
		return
	}

	h.log.Info("admin logged in", zap.String("remote", clientIP(r)))
	respondJSON(w, http.StatusOK, &LoginResponse{Token: session.Token, ExpiresAt: session.ExpiresAt})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(getAdminToken(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateOrderStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", fmt.Sprintf("unknown order status %q", req.Status))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.orders.UpdateOrderStatus(ctx, id, req.Status); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondOrder(ctx, w, r, id)
}

func (h *AdminHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdatePaymentStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.PaymentStatus.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", fmt.Sprintf("unknown payment status %q", req.PaymentStatus))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.orders.UpdatePaymentStatus(ctx, id, req.PaymentStatus); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondOrder(ctx, w, r, id)
}

func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.orders.DeleteOrder(ctx, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.log.Info("order deleted", zap.String("order_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// LinePreview renders line {index} of an order as it was placed.
func (h *AdminHandler) LinePreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	line, ok := h.orderLine(ctx, w, r)
	if !ok {
		return
	}
	if line.Design == nil {
		respondError(w, http.StatusNotFound, "no_design", "order line has no custom design")
		return
	}

	img, err := h.images.Get(ctx, line.Design.ImageID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	out, err := renderPreview(img, line.Design.Transform, previewSize(r.URL.Query().Get("size")))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondPNG(w, out)
}

// LineDesign downloads the normalized design of line {index} for printing.
func (h *AdminHandler) LineDesign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	line, ok := h.orderLine(ctx, w, r)
	if !ok {
		return
	}
	if line.Design == nil {
		respondError(w, http.StatusNotFound, "no_design", "order line has no custom design")
		return
	}

	img, err := h.images.Get(ctx, line.Design.ImageID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	name := fmt.Sprintf("%s-line%s.png", chi.URLParam(r, "id"), chi.URLParam(r, "index"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	respondPNG(w, img.Data)
}

func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.resetter.Reset(ctx); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.log.Warn("store reset by admin", zap.String("remote", clientIP(r)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) respondOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *AdminHandler) orderLine(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.OrderLine, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_index", "line index must be an integer")
		return domain.OrderLine{}, false
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return domain.OrderLine{}, false
	}
	line, ok := order.Line(index)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", fmt.Sprintf("order has no line %d", index))
		return domain.OrderLine{}, false
	}
	return line, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
