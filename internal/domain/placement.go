package domain

import "encoding/json"

const (
	MinScale      = 10
	MaxScale      = 200
	DefaultScale  = 100
	MinOffset     = -100
	MaxOffset     = 100
	DefaultOffset = 0
)

// PlacementTransform holds the scale (percent) and offsets (pixels in the
// customizer's region) of a design on a product. Values are always inside
// their domains.
type PlacementTransform struct {
	Scale   int `json:"scale"`
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
}

func DefaultTransform() PlacementTransform {
	return PlacementTransform{Scale: DefaultScale, OffsetX: DefaultOffset, OffsetY: DefaultOffset}
}

// NewPlacementTransform builds a transform from raw values, clamping each one.
func NewPlacementTransform(scale, offsetX, offsetY int) PlacementTransform {
	t := DefaultTransform()
	t.SetScale(scale)
	t.SetOffset(offsetX, offsetY)
	return t
}

func (t *PlacementTransform) SetScale(v int) {
	t.Scale = clamp(v, MinScale, MaxScale)
}

func (t *PlacementTransform) SetOffset(dx, dy int) {
	t.OffsetX = clamp(dx, MinOffset, MaxOffset)
	t.OffsetY = clamp(dy, MinOffset, MaxOffset)
}

func (t *PlacementTransform) Reset() {
	*t = DefaultTransform()
}

// Clamped returns a copy with every field forced into its domain.
func (t PlacementTransform) Clamped() PlacementTransform {
	return NewPlacementTransform(t.Scale, t.OffsetX, t.OffsetY)
}

// UnmarshalJSON clamps decoded values. A missing scale decodes to the default.
func (t *PlacementTransform) UnmarshalJSON(data []byte) error {
	var raw struct {
		Scale   *int `json:"scale"`
		OffsetX int  `json:"offset_x"`
		OffsetY int  `json:"offset_y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	scale := DefaultScale
	if raw.Scale != nil {
		scale = *raw.Scale
	}
	*t = NewPlacementTransform(scale, raw.OffsetX, raw.OffsetY)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
