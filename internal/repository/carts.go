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

// GetCart returns the stored cart for a session. A row that cannot be
// parsed yields an empty cart instead of an error.
func (r *Repository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM carts WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		r.log.Warn("malformed stored cart, using empty cart",
			zap.String("session_id", sessionID), zap.Error(err))
		return domain.NewCart(sessionID), nil
	}
	cart.SessionID = sessionID
	return &cart, nil
}

func (r *Repository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO carts (session_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		cart.SessionID, string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

func (r *Repository) DeleteCart(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
