package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/google/uuid"
)

const designColumns = `id, title, description, price, category, thumbnail_id, created_at`

type DesignFilter struct {
	Category domain.DesignCategory
	Query    string
}

// ListDesignAssets returns assets newest first, optionally filtered by
// category and by a case-insensitive title match.
func (r *Repository) ListDesignAssets(ctx context.Context, f DesignFilter) ([]*domain.DesignAsset, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "title LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(q)+"%")
	}

	query := `SELECT ` + designColumns + ` FROM design_assets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query design assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.DesignAsset
	for rows.Next() {
		a, err := scanDesign(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return assets, nil
}

func (r *Repository) GetDesignAsset(ctx context.Context, id string) (*domain.DesignAsset, error) {
	a, err := scanDesign(r.db.QueryRowContext(ctx, `SELECT `+designColumns+` FROM design_assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDesignNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) CreateDesignAsset(ctx context.Context, a *domain.DesignAsset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO design_assets (`+designColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Description, a.Price.StringFixed(2), string(a.Category), a.ThumbnailID, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert design asset: %w", err)
	}
	return nil
}

func (r *Repository) UpdateDesignAsset(ctx context.Context, a *domain.DesignAsset) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE design_assets SET title = ?, description = ?, price = ?, category = ?, thumbnail_id = ? WHERE id = ?`,
		a.Title, a.Description, a.Price.StringFixed(2), string(a.Category), a.ThumbnailID, a.ID)
	if err != nil {
		return fmt.Errorf("update design asset: %w", err)
	}
	return expectOneRow(res, ErrDesignNotFound)
}

func (r *Repository) DeleteDesignAsset(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM design_assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete design asset: %w", err)
	}
	return expectOneRow(res, ErrDesignNotFound)
}

func scanDesign(row scanner) (*domain.DesignAsset, error) {
	a := &domain.DesignAsset{}
	var category, createdAt string
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Price, &category, &a.ThumbnailID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan design asset: %w", err)
	}
	a.Category = domain.DesignCategory(category)

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return a, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
