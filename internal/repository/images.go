package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/google/uuid"
)

func (r *Repository) SaveImage(ctx context.Context, img *domain.NormalizedImage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO images (id, data, width, height, mime_type, source_mime_type, mirror_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID.String(),
		img.Data,
		img.Width,
		img.Height,
		img.MimeType,
		img.SourceMimeType,
		img.MirrorURL,
		formatTime(img.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// GetImage returns the image including its encoded bytes.
func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*domain.NormalizedImage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, width, height, mime_type, source_mime_type, mirror_url, created_at, data FROM images WHERE id = ?`,
		id.String())
	return scanImage(row, true)
}

// GetImageMeta returns the image without its bytes.
func (r *Repository) GetImageMeta(ctx context.Context, id uuid.UUID) (*domain.NormalizedImage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, width, height, mime_type, source_mime_type, mirror_url, created_at FROM images WHERE id = ?`,
		id.String())
	return scanImage(row, false)
}

func (r *Repository) SetImageMirrorURL(ctx context.Context, id uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE images SET mirror_url = ? WHERE id = ?`, url, id.String())
	if err != nil {
		return fmt.Errorf("update image mirror url: %w", err)
	}
	return expectOneRow(res, ErrImageNotFound)
}

func scanImage(row scanner, withData bool) (*domain.NormalizedImage, error) {
	img := &domain.NormalizedImage{}
	var id, createdAt string
	dest := []any{&id, &img.Width, &img.Height, &img.MimeType, &img.SourceMimeType, &img.MirrorURL, &createdAt}
	if withData {
		dest = append(dest, &img.Data)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	var err error
	if img.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse image id %q: %w", id, err)
	}
	if img.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return img, nil
}
