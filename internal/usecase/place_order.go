package usecase

import (
	"context"
	"log/slog"

	"canteen/internal/domain"
)

// PlaceOrder turns the device cart into a Pending order.
type PlaceOrder struct {
	orders domain.OrderRepository
	placed func()
	logger *slog.Logger
}

// NewPlaceOrder creates a new PlaceOrder usecase. placed, when non-nil, is
// called after every stored order.
func NewPlaceOrder(o domain.OrderRepository, placed func(), l *slog.Logger) *PlaceOrder {
	return &PlaceOrder{orders: o, placed: placed, logger: l}
}

// Execute places the cart as an order for userID and empties the cart.
func (uc *PlaceOrder) Execute(ctx context.Context, dev Device, userID string) (*domain.Order, error) {
	cart := dev.Storage.LoadCart(ctx)
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	order, err := uc.orders.CreateOrder(ctx, domain.Order{
		UserID: userID,
		Items:  cart.Lines(),
		Total:  cart.Total(),
		Status: domain.StatusPending,
	})
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to place order", "user_id", userID, "error", err)
		return nil, err
	}

	if err := dev.Storage.SaveCart(ctx, nil); err != nil {
		uc.logger.WarnContext(ctx, "failed to clear cart", "device_id", dev.ID, "error", err)
	}
	if uc.placed != nil {
		uc.placed()
	}

	uc.logger.InfoContext(ctx, "order placed", "order_id", order.ID, "user_id", userID, "total", order.Total)
	return order, nil
}
