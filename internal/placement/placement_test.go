package placement

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/stretchr/testify/assert"
)

var reference = image.Rect(0, 0, ReferenceRegionSize, ReferenceRegionSize)

func TestLayout_DefaultCentersWithoutUpscaling(t *testing.T) {
	r := Layout(reference, 100, 50, domain.DefaultTransform())
	assert.Equal(t, image.Rect(130, 155, 230, 205), r)
}

func TestLayout_FitsLargeDesign(t *testing.T) {
	r := Layout(reference, 1200, 800, domain.DefaultTransform())
	assert.Equal(t, image.Rect(0, 60, 360, 300), r)
}

func TestLayout_ScaleAboutCenterThenTranslate(t *testing.T) {
	tr := domain.NewPlacementTransform(150, 20, -10)
	r := Layout(reference, 100, 100, tr)

	// 150x150 centered at (180+20, 180-10)
	assert.Equal(t, image.Rect(125, 95, 275, 245), r)
}

func TestLayout_OffsetsFollowRegionSize(t *testing.T) {
	tr := domain.NewPlacementTransform(100, 20, -10)

	big := image.Rect(0, 0, 720, 720)
	r := Layout(big, 100, 100, tr)
	assert.Equal(t, image.Pt(360+40, 360-20), center(r))

	small := image.Rect(0, 0, 180, 180)
	r = Layout(small, 90, 90, tr)
	assert.Equal(t, image.Pt(90+10, 90-5), center(r))
}

func TestLayout_SameRatiosAcrossContexts(t *testing.T) {
	tr := domain.NewPlacementTransform(80, -60, 35)
	design := [2]int{1200, 800}

	ref := Layout(reference, design[0], design[1], tr)
	thumb := Layout(image.Rect(0, 0, 90, 90), design[0], design[1], tr)

	// relative position and size inside the region are the same
	assert.InDelta(t, float64(ref.Min.X)/360, float64(thumb.Min.X)/90, 0.02)
	assert.InDelta(t, float64(ref.Min.Y)/360, float64(thumb.Min.Y)/90, 0.02)
	assert.InDelta(t, float64(ref.Dx())/360, float64(thumb.Dx())/90, 0.02)
}

func TestLayout_RegionWithOrigin(t *testing.T) {
	region := image.Rect(120, 120, 480, 480)
	r := Layout(region, 100, 100, domain.DefaultTransform())
	assert.Equal(t, image.Rect(250, 250, 350, 350), r)
}

func TestLayout_ClampsRawTransform(t *testing.T) {
	raw := domain.PlacementTransform{Scale: 1000, OffsetX: 0, OffsetY: 0}
	r := Layout(reference, 100, 100, raw)
	assert.Equal(t, 200, r.Dx())
}

func TestLayout_EmptyInputs(t *testing.T) {
	assert.True(t, Layout(reference, 0, 10, domain.DefaultTransform()).Empty())
	assert.True(t, Layout(image.Rectangle{}, 10, 10, domain.DefaultTransform()).Empty())
}

func TestDefaultRegion(t *testing.T) {
	assert.Equal(t, image.Rect(120, 120, 480, 480), DefaultRegion(image.Rect(0, 0, 600, 600)))
	assert.Equal(t, image.Rect(340, 40, 460, 160), DefaultRegion(image.Rect(0, 0, 800, 200)))
}

func TestComposite_DrawsInsideRegionOnly(t *testing.T) {
	red := solid(100, 100, color.RGBA{R: 0xff, A: 0xff})
	dst := image.NewRGBA(image.Rect(0, 0, 600, 600))

	region := DefaultRegion(dst.Bounds())
	// pushed far right and doubled, so part of it falls outside the region
	Composite(dst, region, red, domain.NewPlacementTransform(200, 100, 0))

	// centered at x = 300 + 100, y = 300
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, dst.RGBAAt(400, 300))
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, dst.RGBAAt(470, 300))
	// beyond region.Max.X = 480 stays untouched
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(490, 300))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(250, 300))
}

func TestComposite_KeepsTransparency(t *testing.T) {
	design := image.NewNRGBA(image.Rect(0, 0, 100, 100)) // fully transparent
	dst := image.NewRGBA(image.Rect(0, 0, 360, 360))
	blue := color.RGBA{B: 0xff, A: 0xff}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(blue), image.Point{}, draw.Src)

	Composite(dst, dst.Bounds(), design, domain.DefaultTransform())

	assert.Equal(t, blue, dst.RGBAAt(180, 180))
}

func TestRender_UsesReferenceScaleAt600(t *testing.T) {
	green := solid(60, 60, color.RGBA{G: 0xff, A: 0xff})
	img := Render(600, green, domain.NewPlacementTransform(100, 50, 0))

	assert.Equal(t, image.Rect(0, 0, 600, 600), img.Bounds())
	assert.Equal(t, color.RGBA{G: 0xff, A: 0xff}, img.RGBAAt(350, 300))
	assert.Equal(t, Background, img.RGBAAt(300, 300))
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}
