package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"go.uber.org/zap"
)

// GetSettings returns the stored site settings, or the defaults when none
// are stored or the stored value cannot be parsed.
func (r *Repository) GetSettings(ctx context.Context) (domain.SiteSettings, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM site_settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.SiteSettings{}, fmt.Errorf("query settings: %w", err)
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		r.log.Warn("malformed stored settings, using defaults", zap.Error(err))
		return domain.DefaultSettings(), nil
	}
	return settings, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s domain.SiteSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO site_settings (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
