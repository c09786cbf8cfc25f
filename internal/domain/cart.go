package domain

import (
	"time"

	"github.com/google/uuid"
)

// LineDesign binds a normalized image to the transform the customer chose.
type LineDesign struct {
	DesignRef
	Transform PlacementTransform `json:"transform"`
}

type LineItem struct {
	ProductID string      `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Size      Size        `json:"size,omitempty"`
	Design    *LineDesign `json:"design,omitempty"`
}

// DesignID returns the attached image ID, or uuid.Nil for a plain line.
func (l LineItem) DesignID() uuid.UUID {
	if l.Design == nil {
		return uuid.Nil
	}
	return l.Design.ImageID
}

// Clone returns a copy that shares no memory with l.
func (l LineItem) Clone() LineItem {
	if l.Design != nil {
		d := *l.Design
		l.Design = &d
	}
	return l
}

type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	now := time.Now().UTC()
	return &Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
}

func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]LineItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.Clone()
	}
	return &out
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
