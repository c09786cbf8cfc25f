package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/cart"
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Consumers define this interface
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, in cart.AddItemInput) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID string, sel cart.Selector, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, sel cart.Selector) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type CartHandler struct {
	carts    CartService
	products ProductReader
	log      *zap.Logger
	timeout  time.Duration
}

func NewCartHandler(carts CartService, products ProductReader, log *zap.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, products: products, log: log, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID string                     `json:"product_id"`
	Quantity  int                        `json:"quantity"`
	Size      domain.Size                `json:"size,omitempty"`
	DesignID  string                     `json:"design_id,omitempty"`
	Transform *domain.PlacementTransform `json:"transform,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	ProductID string       `json:"product_id"`
	DesignID  string       `json:"design_id,omitempty"`
	Size      *domain.Size `json:"size,omitempty"`
	Quantity  int          `json:"quantity"`
}

type CartLineResponse struct {
	domain.LineItem
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	PreviewURL  string          `json:"preview_url,omitempty"`
}

type CartResponse struct {
	SessionID string             `json:"session_id"`
	Items     []CartLineResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Total     decimal.Decimal    `json:"total"`
	Currency  string             `json:"currency"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.GetCart(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	designID, err := parseDesignID(req.DesignID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_design_id", err.Error())
		return
	}

	c, err := h.carts.AddItem(ctx, getSessionID(r.Context()), cart.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		DesignID:  designID,
		Transform: req.Transform,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusCreated, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	designID, err := parseDesignID(req.DesignID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_design_id", err.Error())
		return
	}

	sel := cart.Selector{ProductID: req.ProductID, DesignID: designID, Size: req.Size}
	c, err := h.carts.UpdateQuantity(ctx, getSessionID(r.Context()), sel, req.Quantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK, c)
}

// RemoveItem takes the selector from the query: ?product_id=&design_id=&size=.
// Omitting size removes every size.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	productID := q.Get("product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	designID, err := parseDesignID(q.Get("design_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_design_id", err.Error())
		return
	}
	sel := cart.Selector{ProductID: productID, DesignID: designID}
	if q.Has("size") {
		size := domain.Size(q.Get("size"))
		sel.Size = &size
	}

	c, err := h.carts.RemoveItem(ctx, getSessionID(r.Context()), sel)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sid := getSessionID(r.Context())
	if err := h.carts.ClearCart(ctx, sid); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK, domain.NewCart(sid))
}

// respondCart prices each line at the current catalog price. Lines whose
// product has gone are shown without a price.
func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, c *domain.Cart) {
	resp := CartResponse{
		SessionID: c.SessionID,
		Items:     make([]CartLineResponse, 0, len(c.Items)),
		Total:     decimal.Zero,
		Currency:  domain.Currency,
		UpdatedAt: c.UpdatedAt,
	}

	for _, item := range c.Items {
		line := CartLineResponse{LineItem: item, UnitPrice: decimal.Zero, Subtotal: decimal.Zero}
		p, err := h.products.GetProduct(ctx, item.ProductID)
		switch {
		case err == nil:
			line.ProductName = p.Name
			line.UnitPrice = p.Price
			line.Subtotal = p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			resp.Total = resp.Total.Add(line.Subtotal)
		case errors.Is(err, repository.ErrProductNotFound):
			h.log.Debug("cart line references missing product", zap.String("product_id", item.ProductID))
		default:
			handleError(w, r, h.log, err)
			return
		}
		if item.Design != nil {
			line.PreviewURL = previewURL(item.Design)
		}
		resp.ItemCount += item.Quantity
		resp.Items = append(resp.Items, line)
	}

	respondJSON(w, status, resp)
}

func previewURL(d *domain.LineDesign) string {
	return "/api/v1/uploads/" + d.ImageID.String() + "/preview" +
		"?scale=" + strconv.Itoa(d.Transform.Scale) +
		"&x=" + strconv.Itoa(d.Transform.OffsetX) +
		"&y=" + strconv.Itoa(d.Transform.OffsetY)
}

func parseDesignID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("design_id must be a UUID: %w", err)
	}
	return id, nil
}
