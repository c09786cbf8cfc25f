package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const Currency = "GHS"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPrinting  OrderStatus = "Printing"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPrinting, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentStatusAwaitingVerification PaymentStatus = "Awaiting Verification"
	PaymentStatusVerified             PaymentStatus = "Verified"
	PaymentStatusFailed               PaymentStatus = "Failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusAwaitingVerification, PaymentStatusVerified, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderLine is a cart line frozen at checkout together with the catalog
// name and price captured at that moment.
type OrderLine struct {
	LineItem
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is an immutable snapshot of a cart. Only Status and PaymentStatus
// change after creation.
type Order struct {
	ID               string          `json:"id"`
	Customer         CustomerInfo    `json:"customer"`
	PaymentReference string          `json:"payment_reference"`
	Items            []OrderLine     `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	Status           OrderStatus     `json:"status"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	SessionID        string          `json:"-"`
	IdempotencyKey   string          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Line returns a deep copy of the i-th line, or false when out of range.
func (o *Order) Line(i int) (OrderLine, bool) {
	if i < 0 || i >= len(o.Items) {
		return OrderLine{}, false
	}
	l := o.Items[i]
	l.LineItem = l.LineItem.Clone()
	return l, true
}
