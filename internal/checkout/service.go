package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/metrics"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidCustomer = errors.New("customer details incomplete")
	ErrProductNotFound = errors.New("product in cart no longer exists")
)

// Consumers define this interface
type CartConsumer interface {
	Consume(ctx context.Context, sessionID string, fn func(*domain.Cart) error) error
}

type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order, eventPayload []byte) error
	GetOrderByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.Order, error)
}

type CheckoutService struct {
	carts    CartConsumer
	products ProductReader
	orders   OrderStore
	log      *zap.Logger
	now      func() time.Time
}

func NewCheckoutService(carts CartConsumer, products ProductReader, orders OrderStore, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		products: products,
		orders:   orders,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Checkout turns the session's cart into an order and empties the cart. A
// repeated idempotency key from the same session returns the order created by
// the first call; keys never match across sessions.
func (s *CheckoutService) Checkout(ctx context.Context, sessionID string, customer domain.CustomerInfo, paymentRef, idempotencyKey string) (*domain.Order, error) {
	customer = normalizeCustomer(customer)
	paymentRef = strings.TrimSpace(paymentRef)
	if err := validate(customer, paymentRef); err != nil {
		return nil, err
	}

	if existing, err := s.orders.GetOrderByIdempotencyKey(ctx, sessionID, idempotencyKey); err == nil {
		s.log.Info("duplicate checkout request",
			zap.String("idempotency_key", idempotencyKey), zap.String("order_id", existing.ID))
		return existing, nil
	} else if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}

	var order *domain.Order
	err := s.carts.Consume(ctx, sessionID, func(c *domain.Cart) error {
		if c.IsEmpty() {
			return ErrEmptyCart
		}

		o, err := s.snapshot(ctx, c)
		if err != nil {
			return err
		}
		o.SessionID = sessionID
		o.Customer = customer
		o.PaymentReference = paymentRef
		o.IdempotencyKey = idempotencyKey

		payload, err := eventPayload(o)
		if err != nil {
			return err
		}

		if err := s.orders.CreateOrder(ctx, o, payload); err != nil {
			if errors.Is(err, repository.ErrDuplicateOrder) {
				existing, errGet := s.orders.GetOrderByIdempotencyKey(ctx, sessionID, idempotencyKey)
				if errGet != nil {
					return fmt.Errorf("load duplicate order: %w", errGet)
				}
				order = existing
				return nil
			}
			return fmt.Errorf("failed to store order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersTotal.Inc()
	metrics.OrderAmount.Observe(order.TotalAmount.InexactFloat64())
	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("session_id", sessionID),
		zap.Int("lines", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	return order, nil
}

// snapshot copies every cart line by value and captures the catalog name and
// price at this moment.
func (s *CheckoutService) snapshot(ctx context.Context, c *domain.Cart) (*domain.Order, error) {
	now := s.now()
	o := &domain.Order{
		ID:            NewOrderID(),
		Items:         make([]domain.OrderLine, 0, len(c.Items)),
		TotalAmount:   decimal.Zero,
		Currency:      domain.Currency,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusAwaitingVerification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, item := range c.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("failed to get product %s: %w", item.ProductID, err)
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		o.Items = append(o.Items, domain.OrderLine{
			LineItem:    item.Clone(),
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Subtotal:    subtotal,
		})
		o.TotalAmount = o.TotalAmount.Add(subtotal)
	}
	return o, nil
}

// NewOrderID returns an ID of the form ORD-XXXXXXXX.
func NewOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}

func eventPayload(o *domain.Order) ([]byte, error) {
	payload := map[string]interface{}{
		"order_id":       o.ID,
		"customer":       o.Customer,
		"payment_ref":    o.PaymentReference,
		"items":          o.Items,
		"total_amount":   o.TotalAmount.StringFixed(2),
		"currency":       o.Currency,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
		"created_at":     o.CreatedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}
	return data, nil
}

func normalizeCustomer(c domain.CustomerInfo) domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

func validate(c domain.CustomerInfo, paymentRef string) error {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		missing = append(missing, "email")
	}
	if c.Phone == "" {
		missing = append(missing, "phone")
	}
	if c.Address == "" {
		missing = append(missing, "address")
	}
	if paymentRef == "" {
		missing = append(missing, "payment_reference")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCustomer, strings.Join(missing, ", "))
	}
	return nil
}
