package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
)

// Handoff is the message sent to the shop's WhatsApp line so a person can
// verify the Momo transaction and start production.
type Handoff struct {
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

func NewHandoff(whatsAppNumber string, o *domain.Order) Handoff {
	summary := FormatSummary(o)
	return Handoff{Summary: summary, URL: HandoffURL(whatsAppNumber, summary)}
}

func FormatSummary(o *domain.Order) string {
	var b strings.Builder
	b.WriteString("*NEW ORDER FROM TEETOTPRINT*\n")
	fmt.Fprintf(&b, "*Order ID:* %s\n\n", o.ID)
	fmt.Fprintf(&b, "*Customer:* %s\n", o.Customer.Name)
	fmt.Fprintf(&b, "*Phone:* %s\n", o.Customer.Phone)
	fmt.Fprintf(&b, "*Address:* %s\n\n", o.Customer.Address)

	b.WriteString("*Items:*\n")
	for _, l := range o.Items {
		fmt.Fprintf(&b, "- %s (Qty: %d", l.ProductName, l.Quantity)
		if l.Size != "" {
			fmt.Fprintf(&b, ", Size: %s", l.Size)
		}
		if l.Design != nil {
			b.WriteString(", Custom design")
		}
		b.WriteString(")\n")
	}

	fmt.Fprintf(&b, "\n*Total Payable:* %s %s\n", o.Currency, o.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "*Momo Transaction ID:* %s\n\n", o.PaymentReference)
	b.WriteString("_Please verify this transaction for production._")
	return b.String()
}

// HandoffURL builds a wa.me link carrying text. Spaces are sent as %20.
func HandoffURL(number, text string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), "+")
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + number + "?text=" + escaped
}
