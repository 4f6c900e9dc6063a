package usecase

import (
	"context"
	"log/slog"

	"canteen/internal/domain"
)

// OrderHistory lists a student's own orders, newest first.
type OrderHistory struct {
	orders domain.OrderRepository
	logger *slog.Logger
}

// NewOrderHistory creates a new OrderHistory usecase.
func NewOrderHistory(o domain.OrderRepository, l *slog.Logger) *OrderHistory {
	return &OrderHistory{orders: o, logger: l}
}

// Execute returns the orders placed by userID.
func (uc *OrderHistory) Execute(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := uc.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to list order history", "user_id", userID, "error", err)
		return nil, err
	}
	return orders, nil
}
