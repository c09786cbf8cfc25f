package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/metrics"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the longer side of every normalized image.
	MaxDimension = 1200

	// MaxSourcePixels rejects sources whose decoded bitmap would be too large to hold.
	MaxSourcePixels = 60_000_000

	OutputMimeType = "image/png"
)

type Normalizer struct {
	maxDimension int
	maxPixels    int
	now          func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		maxDimension: MaxDimension,
		maxPixels:    MaxSourcePixels,
		now:          time.Now,
	}
}

// Normalize decodes data, scales it so that neither side exceeds
// MaxDimension and re-encodes it as PNG on a transparent surface.
// data is never modified.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, mimeType string) (img *domain.NormalizedImage, err error) {
	start := n.now()
	defer func() {
		metrics.NormalizeDuration.Observe(time.Since(start).Seconds())
		metrics.NormalizeTotal.WithLabelValues(outcome(err)).Inc()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, decodeError(errors.New("empty input"))
	}
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return nil, decodeError(fmt.Errorf("unsupported media type %q", mimeType))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, decodeError(fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Width*cfg.Height > n.maxPixels {
		return nil, decodeError(fmt.Errorf("source %dx%d exceeds %d pixels", cfg.Width, cfg.Height, n.maxPixels))
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), n.maxDimension)

	dst, err := newSurface(w, h)
	if err != nil {
		return nil, encodeError(err)
	}
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, encodeError(err)
	}

	if mimeType == "" {
		mimeType = "image/" + format
	}
	return &domain.NormalizedImage{
		ID:             uuid.New(),
		Data:           buf.Bytes(),
		Width:          w,
		Height:         h,
		MimeType:       OutputMimeType,
		SourceMimeType: mimeType,
		CreatedAt:      n.now().UTC(),
	}, nil
}

// TargetSize scales (w, h) so the longer side equals limit, keeping the
// aspect ratio. Sizes already within limit are returned unchanged.
func TargetSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, scaleSide(h, limit, w)
	}
	return scaleSide(w, limit, h), limit
}

func scaleSide(side, num, den int) int {
	v := int(math.Round(float64(side) * float64(num) / float64(den)))
	if v < 1 {
		return 1
	}
	return v
}

// newSurface allocates a cleared, fully transparent RGBA bitmap.
func newSurface(w, h int) (dst *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			dst, err = nil, fmt.Errorf("allocate %dx%d surface: %v", w, h, r)
		}
	}()
	dst = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	return dst, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDecodeFailed):
		return "decode_failed"
	case errors.Is(err, ErrEncodeFailed):
		return "encode_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
