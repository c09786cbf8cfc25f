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

const orderColumns = `id, session_id, idempotency_key, customer, payment_reference, items, total_amount, currency, status, payment_status, created_at, updated_at`

// CreateOrder stores the order and its order.created outbox event in one
// transaction.
func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order, eventPayload []byte) error {
	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("failed to marshal customer: %w", err)
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if o.IdempotencyKey != "" {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM orders WHERE session_id = ? AND idempotency_key = ?`, o.SessionID, o.IdempotencyKey).Scan(&existing)
		if err == nil {
			return ErrDuplicateOrder
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check idempotency key: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.SessionID,
		o.IdempotencyKey,
		string(customerJSON),
		o.PaymentReference,
		string(itemsJSON),
		o.TotalAmount.StringFixed(2),
		o.Currency,
		string(o.Status),
		string(o.PaymentStatus),
		formatTime(o.CreatedAt),
		formatTime(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := insertEvent(ctx, tx, o.ID, EventOrderCreated, eventPayload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOrderWhere(ctx, `id = ?`, id)
}

// GetSessionOrder returns the order only when it was placed from sessionID;
// any other session gets ErrOrderNotFound.
func (r *Repository) GetSessionOrder(ctx context.Context, sessionID, id string) (*domain.Order, error) {
	if sessionID == "" {
		return nil, ErrOrderNotFound
	}
	return r.getOrderWhere(ctx, `session_id = ? AND id = ?`, sessionID, id)
}

// GetOrderByIdempotencyKey looks the key up among the orders of one session.
func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.Order, error) {
	if key == "" {
		return nil, ErrOrderNotFound
	}
	return r.getOrderWhere(ctx, `session_id = ? AND idempotency_key = ?`, sessionID, key)
}

func (r *Repository) getOrderWhere(ctx context.Context, where string, args ...interface{}) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, args...)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns all orders newest first. Rows that cannot be parsed are
// skipped and logged.
func (r *Repository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.log.Warn("skipping malformed order row", zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return r.updateOrder(ctx, id, "status", string(status))
}

func (r *Repository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	return r.updateOrder(ctx, id, "payment_status", string(status))
}

type statusChangedEvent struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r *Repository) updateOrder(ctx context.Context, id, column, value string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET `+column+` = ?, updated_at = ? WHERE id = ?`, value, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update order %s: %w", column, err)
	}
	if err := expectOneRow(res, ErrOrderNotFound); err != nil {
		return err
	}

	ev := statusChangedEvent{OrderID: id, UpdatedAt: now}
	if err := tx.QueryRowContext(ctx, `SELECT status, payment_status FROM orders WHERE id = ?`, id).
		Scan(&ev.Status, &ev.PaymentStatus); err != nil {
		return fmt.Errorf("reload order status: %w", err)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	if err := insertEvent(ctx, tx, id, EventOrderStatusChanged, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order update: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if err := expectOneRow(res, ErrOrderNotFound); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]string{"order_id": id})
	if err := insertEvent(ctx, tx, id, EventOrderDeleted, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order delete: %w", err)
	}
	return nil
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		customerJSON, items  string
		status, payment      string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&o.ID,
		&o.SessionID,
		&o.IdempotencyKey,
		&customerJSON,
		&o.PaymentReference,
		&items,
		&o.TotalAmount,
		&o.Currency,
		&status,
		&payment,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if err := json.Unmarshal([]byte(customerJSON), &o.Customer); err != nil {
		return nil, fmt.Errorf("order %s: unmarshal customer: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("order %s: unmarshal items: %w", o.ID, err)
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(payment)
	if !o.Status.Valid() || !o.PaymentStatus.Valid() {
		return nil, fmt.Errorf("order %s: unknown status %q / %q", o.ID, status, payment)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
