package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"canteen/internal/domain"
)

const orderColumns = `o.id::text, o.user_id, o.items, o.total::float8, o.status, o.created_at, COALESCE(p.full_name, '')`

// OrderRepository implements domain.OrderRepository.
type OrderRepository struct {
	db     DB
	logger *slog.Logger
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db DB, logger *slog.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

// CreateOrder inserts order and returns it with its id and timestamp.
func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}

	query := `
		INSERT INTO orders (user_id, items, total, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`
	if err := r.db.QueryRow(ctx, query, order.UserID, items, order.Total, string(order.Status)).
		Scan(&order.ID, &order.CreatedAt); err != nil {
		r.logger.ErrorContext(ctx, "failed to create order", "user_id", order.UserID, "error", err)
		return nil, mapError(err, "create order")
	}
	return &order, nil
}

// GetOrder returns one order.
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		WHERE o.id = $1
	`
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "order")
	}
	return order, nil
}

// ListOrdersByUser returns the orders of userID, newest first.
func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`
	return r.list(ctx, query, userID)
}

// ListOrders returns all orders, optionally filtered by status, newest first.
func (r *OrderRepository) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		WHERE ($1 = '' OR o.status = $1)
		ORDER BY o.created_at DESC
	`
	return r.list(ctx, query, string(status))
}

// UpdateStatus sets the status of an order if it still holds from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`, id, string(to), string(from))
	if err != nil {
		return mapError(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", domain.ErrInvalidTransition, id, from)
	}
	return nil
}

func (r *OrderRepository) list(ctx context.Context, query string, arg string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, mapError(err, "list orders")
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, mapError(err, "scan order")
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list orders")
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		items  []byte
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.Total, &status, &o.CreatedAt, &o.CustomerName); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
