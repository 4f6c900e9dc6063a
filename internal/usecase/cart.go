package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"canteen/internal/domain"
)

// ManageCart edits the device-local cart.
type ManageCart struct {
	menu   domain.MenuRepository
	logger *slog.Logger
}

// NewManageCart creates a new ManageCart usecase.
func NewManageCart(m domain.MenuRepository, l *slog.Logger) *ManageCart {
	return &ManageCart{menu: m, logger: l}
}

// View returns the current cart.
func (uc *ManageCart) View(ctx context.Context, dev Device) domain.Cart {
	return dev.Storage.LoadCart(ctx)
}

// Add puts one unit of an available item into the cart.
func (uc *ManageCart) Add(ctx context.Context, dev Device, itemID string) (domain.Cart, error) {
	item, err := uc.menu.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemUnavailable, item.Name)
	}

	cart := dev.Storage.LoadCart(ctx).Add(*item)
	if err := dev.Storage.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	uc.logger.DebugContext(ctx, "item added to cart", "device_id", dev.ID, "item_id", itemID)
	return cart, nil
}

// ChangeQty adjusts a line's quantity by delta. Quantities never drop below one.
func (uc *ManageCart) ChangeQty(ctx context.Context, dev Device, itemID string, delta int) (domain.Cart, error) {
	cart, ok := dev.Storage.LoadCart(ctx).ChangeQty(itemID, delta)
	if !ok {
		return nil, fmt.Errorf("%w: item %s is not in the cart", domain.ErrNotFound, itemID)
	}
	if err := dev.Storage.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Remove drops a line from the cart.
func (uc *ManageCart) Remove(ctx context.Context, dev Device, itemID string) (domain.Cart, error) {
	cart, ok := dev.Storage.LoadCart(ctx).Remove(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %s is not in the cart", domain.ErrNotFound, itemID)
	}
	if err := dev.Storage.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
