package domain

import (
	"time"

	"github.com/google/uuid"
)

// NormalizedImage is a resized PNG produced from exactly one upload.
// It is never modified after creation.
type NormalizedImage struct {
	ID             uuid.UUID `json:"id"`
	Data           []byte    `json:"-"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	MimeType       string    `json:"mime_type"`
	SourceMimeType string    `json:"source_mime_type"`
	MirrorURL      string    `json:"mirror_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ref returns the reference a cart line stores for this image.
func (img *NormalizedImage) Ref() DesignRef {
	return DesignRef{ImageID: img.ID, Width: img.Width, Height: img.Height}
}

// DesignRef identifies a normalized image by its ID. Two refs denote the same
// design only when the IDs are equal.
type DesignRef struct {
	ImageID uuid.UUID `json:"image_id"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
}
