package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"canteen/internal/domain"
)

// StaffOrders is the kitchen view of all orders.
type StaffOrders struct {
	orders domain.OrderRepository
	logger *slog.Logger
}

// NewStaffOrders creates a new StaffOrders usecase.
func NewStaffOrders(o domain.OrderRepository, l *slog.Logger) *StaffOrders {
	return &StaffOrders{orders: o, logger: l}
}

// List returns orders with their customer names. An empty status lists all.
func (uc *StaffOrders) List(ctx context.Context, status string) ([]domain.Order, error) {
	var filter domain.OrderStatus
	if status != "" {
		s, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter = s
	}
	return uc.orders.ListOrders(ctx, filter)
}

// Advance moves an order one step forward to next.
func (uc *StaffOrders) Advance(ctx context.Context, id string, next domain.OrderStatus) error {
	order, err := uc.orders.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if !order.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, order.Status, next)
	}
	if err := uc.orders.UpdateStatus(ctx, id, order.Status, next); err != nil {
		uc.logger.ErrorContext(ctx, "failed to update order status", "order_id", id, "error", err)
		return err
	}
	uc.logger.InfoContext(ctx, "order status changed", "order_id", id, "from", order.Status, "to", next)
	return nil
}
