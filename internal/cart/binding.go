package cart

import (
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/google/uuid"
)

// Selector picks cart lines by product and design. A nil Size matches every
// size; uuid.Nil as DesignID matches only lines without a design.
type Selector struct {
	ProductID string
	DesignID  uuid.UUID
	Size      *domain.Size
}

func (s Selector) matches(l domain.LineItem) bool {
	if l.ProductID != s.ProductID || l.DesignID() != s.DesignID {
		return false
	}
	return s.Size == nil || *s.Size == l.Size
}

// AddLine returns a cart with the line added. A line with the same product,
// design and size absorbs the quantity, capped at MaxLineQuantity, and takes
// the new transform; otherwise a new line is appended. c is not modified.
func AddLine(c *domain.Cart, productID string, qty int, design *domain.DesignRef, size domain.Size, transform *domain.PlacementTransform) *domain.Cart {
	if qty < 1 {
		qty = 1
	}
	next := c.Clone()

	var designID uuid.UUID
	if design != nil {
		designID = design.ImageID
	}

	for i := range next.Items {
		l := &next.Items[i]
		if l.ProductID != productID || l.DesignID() != designID || l.Size != size {
			continue
		}
		l.Quantity = min(l.Quantity+qty, MaxLineQuantity)
		if l.Design != nil {
			l.Design.Transform = transformOrDefault(transform)
		}
		return next
	}

	line := domain.LineItem{ProductID: productID, Quantity: qty, Size: size}
	if design != nil {
		line.Design = &domain.LineDesign{DesignRef: *design, Transform: transformOrDefault(transform)}
	}
	next.Items = append(next.Items, line)
	return next
}

// UpdateQuantity sets the quantity of every line matched by sel, never below 1.
// It reports how many lines matched.
func UpdateQuantity(c *domain.Cart, sel Selector, qty int) (*domain.Cart, int) {
	if qty < 1 {
		qty = 1
	}
	next := c.Clone()
	n := 0
	for i := range next.Items {
		if sel.matches(next.Items[i]) {
			next.Items[i].Quantity = qty
			n++
		}
	}
	return next, n
}

// RemoveLine drops every line matched by sel. Removing a missing line is not an error.
func RemoveLine(c *domain.Cart, sel Selector) (*domain.Cart, int) {
	next := c.Clone()
	kept := next.Items[:0]
	for _, l := range next.Items {
		if !sel.matches(l) {
			kept = append(kept, l)
		}
	}
	removed := len(next.Items) - len(kept)
	next.Items = kept
	return next, removed
}

func Clear(c *domain.Cart) *domain.Cart {
	next := c.Clone()
	next.Items = []domain.LineItem{}
	return next
}

func transformOrDefault(t *domain.PlacementTransform) domain.PlacementTransform {
	if t == nil {
		return domain.DefaultTransform()
	}
	return t.Clamped()
}
