package assets

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const mirrorTimeout = 20 * time.Second

// Consumers define this interface
type SlotNormalizer interface {
	Normalize(ctx context.Context, key string, data []byte, mimeType string) (*domain.NormalizedImage, error)
	Current(key string) (*domain.NormalizedImage, bool)
	Busy(key string) bool
	Clear(key string)
}

type ImageStore interface {
	SaveImage(ctx context.Context, img *domain.NormalizedImage) error
	GetImage(ctx context.Context, id uuid.UUID) (*domain.NormalizedImage, error)
	SetImageMirrorURL(ctx context.Context, id uuid.UUID, url string) error
}

// Library turns uploaded files into stored normalized images. Admin uploads
// are additionally mirrored to the CDN when one is configured.
type Library struct {
	slots  SlotNormalizer
	store  ImageStore
	mirror Mirror
	log    *zap.Logger
}

func NewLibrary(slots SlotNormalizer, store ImageStore, mirror Mirror, log *zap.Logger) *Library {
	if mirror == nil {
		mirror = Nop{}
	}
	return &Library{slots: slots, store: store, mirror: mirror, log: log}
}

// Ingest normalizes data in the editing slot key and stores the result. A
// failed normalization leaves the slot without an image.
func (l *Library) Ingest(ctx context.Context, key string, data []byte, mimeType string, mirror bool) (*domain.NormalizedImage, error) {
	img, err := l.slots.Normalize(ctx, key, data, mimeType)
	if err != nil {
		return nil, err
	}

	if err := l.store.SaveImage(ctx, img); err != nil {
		l.slots.Clear(key)
		return nil, err
	}

	if mirror {
		l.mirrorImage(ctx, img)
	}
	return img, nil
}

func (l *Library) Get(ctx context.Context, id uuid.UUID) (*domain.NormalizedImage, error) {
	return l.store.GetImage(ctx, id)
}

// mirrorImage is best effort: the stored image stays the source of truth.
func (l *Library) mirrorImage(ctx context.Context, img *domain.NormalizedImage) {
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	url, err := l.mirror.Upload(ctx, img.ID, img.Data)
	if errors.Is(err, ErrMirrorDisabled) {
		return
	}
	if err != nil {
		l.log.Warn("image mirror upload failed", zap.String("image_id", img.ID.String()), zap.Error(err))
		return
	}
	if err := l.store.SetImageMirrorURL(ctx, img.ID, url); err != nil {
		l.log.Warn("failed to record mirror url", zap.String("image_id", img.ID.String()), zap.Error(err))
		return
	}
	img.MirrorURL = url
}

// SlotStatus reports whether a normalization is running in the editing slot
// key and the last image it produced, if any.
func (l *Library) SlotStatus(key string) (img *domain.NormalizedImage, busy bool) {
	img, _ = l.slots.Current(key)
	return img, l.slots.Busy(key)
}

// Release removes the CDN copy of the image ref points at, once a product or
// design stops using it. ref may be an image id, an upload URL or a mirror
// URL; refs that name no stored image are ignored. The stored image is kept.
func (l *Library) Release(ctx context.Context, ref string) {
	id, ok := imageIDFromRef(ref)
	if !ok {
		return
	}
	img, err := l.store.GetImage(ctx, id)
	if err != nil || img.MirrorURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	if err := l.mirror.Delete(ctx, id); err != nil {
		l.log.Warn("image mirror delete failed", zap.String("image_id", id.String()), zap.Error(err))
		return
	}
	if err := l.store.SetImageMirrorURL(ctx, id, ""); err != nil {
		l.log.Warn("failed to clear mirror url", zap.String("image_id", id.String()), zap.Error(err))
		return
	}
	l.log.Info("released mirrored image", zap.String("image_id", id.String()))
}

func imageIDFromRef(ref string) (uuid.UUID, bool) {
	if ref == "" {
		return uuid.Nil, false
	}
	base := path.Base(ref)
	base = strings.TrimSuffix(base, path.Ext(base))
	id, err := uuid.Parse(base)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
