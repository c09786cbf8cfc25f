// Package placement maps a PlacementTransform onto pixels. The same rule is
// used for the live customizer, cart thumbnails and admin order review, so
// staff see exactly what the customer configured.
package placement

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	xdraw "golang.org/x/image/draw"
)

// ReferenceRegionSize is the side of the customizer's placement region.
// Offsets are authored in this pixel space.
const ReferenceRegionSize = 360

// RegionFraction is the share of a mockup's shorter side used as print area.
const RegionFraction = 0.6

var Background = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf5, A: 0xff}

// Layout returns where a designW x designH image lands inside region:
// fitted (contain, never upscaled) and centered, scaled by Scale/100 about
// its own center, then translated by the offsets mapped to the region size.
// The result may extend past region; renderers clip it.
func Layout(region image.Rectangle, designW, designH int, t domain.PlacementTransform) image.Rectangle {
	t = t.Clamped()
	rw, rh := float64(region.Dx()), float64(region.Dy())
	if designW <= 0 || designH <= 0 || rw <= 0 || rh <= 0 {
		return image.Rectangle{}
	}

	fit := math.Min(1, math.Min(rw/float64(designW), rh/float64(designH)))
	s := fit * float64(t.Scale) / 100
	w := float64(designW) * s
	h := float64(designH) * s

	cx := float64(region.Min.X) + rw/2 + float64(t.OffsetX)*rw/ReferenceRegionSize
	cy := float64(region.Min.Y) + rh/2 + float64(t.OffsetY)*rh/ReferenceRegionSize

	x0 := int(math.Round(cx - w/2))
	y0 := int(math.Round(cy - h/2))
	return image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
}

// DefaultRegion is the centered square print area of a mockup with the given bounds.
func DefaultRegion(bounds image.Rectangle) image.Rectangle {
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	side = int(math.Round(float64(side) * RegionFraction))
	c := image.Pt(bounds.Min.X+bounds.Dx()/2, bounds.Min.Y+bounds.Dy()/2)
	return image.Rect(c.X-side/2, c.Y-side/2, c.X-side/2+side, c.Y-side/2+side)
}

// Composite draws design onto dst inside region using Layout. Pixels that
// fall outside region are clipped.
func Composite(dst draw.Image, region image.Rectangle, design image.Image, t domain.PlacementTransform) {
	b := design.Bounds()
	target := Layout(region, b.Dx(), b.Dy(), t)
	if target.Empty() {
		return
	}

	layer := image.NewRGBA(region)
	xdraw.ApproxBiLinear.Scale(layer, target, design, b, xdraw.Src, nil)
	draw.Draw(dst, region, layer, region.Min, draw.Over)
}

// Render produces a size x size preview of design placed on a plain mockup.
func Render(size int, design image.Image, t domain.PlacementTransform) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	Composite(canvas, DefaultRegion(canvas.Bounds()), design, t)
	return canvas
}
