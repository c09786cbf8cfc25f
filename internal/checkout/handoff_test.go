package checkout

import (
	"net/url"
	"strings"
	"testing"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:               "ORD-1A2B3C4D",
		Customer:         domain.CustomerInfo{Name: "Efua & Co", Phone: "0244111222", Address: "Osu, Accra"},
		PaymentReference: "TX-5566",
		Items: []domain.OrderLine{
			{
				LineItem:    domain.LineItem{ProductID: "1", Quantity: 2, Size: domain.SizeXL, Design: &domain.LineDesign{DesignRef: domain.DesignRef{ImageID: uuid.New()}}},
				ProductName: "Premium Cotton T-Shirt",
				UnitPrice:   decimal.RequireFromString("25"),
				Subtotal:    decimal.RequireFromString("50"),
			},
			{
				LineItem:    domain.LineItem{ProductID: "3", Quantity: 1},
				ProductName: "Custom Ceramic Mug",
				UnitPrice:   decimal.RequireFromString("12"),
				Subtotal:    decimal.RequireFromString("12"),
			},
		},
		TotalAmount: decimal.RequireFromString("62"),
		Currency:    domain.Currency,
	}
}

func TestFormatSummary(t *testing.T) {
	s := FormatSummary(testOrder())

	assert.Contains(t, s, "*Order ID:* ORD-1A2B3C4D")
	assert.Contains(t, s, "*Customer:* Efua & Co")
	assert.Contains(t, s, "- Premium Cotton T-Shirt (Qty: 2, Size: XL, Custom design)")
	assert.Contains(t, s, "- Custom Ceramic Mug (Qty: 1)")
	assert.Contains(t, s, "*Total Payable:* GHS 62.00")
	assert.Contains(t, s, "*Momo Transaction ID:* TX-5566")
}

func TestHandoffURL_RoundTrips(t *testing.T) {
	h := NewHandoff("+233242645533", testOrder())

	require.True(t, strings.HasPrefix(h.URL, "https://wa.me/233242645533?text="))
	assert.NotContains(t, h.URL, "+")
	assert.NotContains(t, h.URL, " ")

	u, err := url.Parse(h.URL)
	require.NoError(t, err)
	assert.Equal(t, h.Summary, u.Query().Get("text"))
}
