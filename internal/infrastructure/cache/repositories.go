package cache

import (
	"context"

	"canteen/internal/domain"
)

const (
	menuPrefix   = "menu:"
	ordersPrefix = "orders:"
)

// MenuRepository caches menu listings in front of another
// domain.MenuRepository. Writes invalidate every menu listing.
type MenuRepository struct {
	next  domain.MenuRepository
	cache *QueryCache
}

// NewMenuRepository wraps next.
func NewMenuRepository(next domain.MenuRepository, cache *QueryCache) *MenuRepository {
	return &MenuRepository{next: next, cache: cache}
}

// Implements domain.MenuRepository.
var _ domain.MenuRepository = (*MenuRepository)(nil)

func (r *MenuRepository) ListItems(ctx context.Context, onlyAvailable bool) ([]domain.MenuItem, error) {
	key := menuPrefix + "all"
	if onlyAvailable {
		key = menuPrefix + "available"
	}
	return Fetch(ctx, r.cache, key, func(ctx context.Context) ([]domain.MenuItem, error) {
		return r.next.ListItems(ctx, onlyAvailable)
	})
}

func (r *MenuRepository) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	return r.next.GetItem(ctx, id)
}

func (r *MenuRepository) CreateItem(ctx context.Context, in domain.ItemInput) (*domain.MenuItem, error) {
	item, err := r.next.CreateItem(ctx, in)
	if err == nil {
		r.cache.InvalidatePrefix(menuPrefix)
	}
	return item, err
}

func (r *MenuRepository) UpdateItem(ctx context.Context, id string, in domain.ItemInput) (*domain.MenuItem, error) {
	item, err := r.next.UpdateItem(ctx, id, in)
	if err == nil {
		r.cache.InvalidatePrefix(menuPrefix)
	}
	return item, err
}

func (r *MenuRepository) DeleteItem(ctx context.Context, id string) error {
	err := r.next.DeleteItem(ctx, id)
	if err == nil {
		r.cache.InvalidatePrefix(menuPrefix)
	}
	return err
}

func (r *MenuRepository) ToggleAvailability(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := r.next.ToggleAvailability(ctx, id)
	if err == nil {
		r.cache.InvalidatePrefix(menuPrefix)
	}
	return item, err
}

// OrderRepository caches order listings in front of another
// domain.OrderRepository. Writes invalidate every order listing.
type OrderRepository struct {
	next  domain.OrderRepository
	cache *QueryCache
}

// NewOrderRepository wraps next.
func NewOrderRepository(next domain.OrderRepository, cache *QueryCache) *OrderRepository {
	return &OrderRepository{next: next, cache: cache}
}

// Implements domain.OrderRepository.
var _ domain.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	created, err := r.next.CreateOrder(ctx, order)
	if err == nil {
		r.cache.InvalidatePrefix(ordersPrefix)
	}
	return created, err
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return r.next.GetOrder(ctx, id)
}

func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return Fetch(ctx, r.cache, ordersPrefix+"user:"+userID, func(ctx context.Context) ([]domain.Order, error) {
		return r.next.ListOrdersByUser(ctx, userID)
	})
}

func (r *OrderRepository) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return Fetch(ctx, r.cache, ordersPrefix+"all:"+string(status), func(ctx context.Context) ([]domain.Order, error) {
		return r.next.ListOrders(ctx, status)
	})
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	err := r.next.UpdateStatus(ctx, id, from, to)
	if err == nil {
		r.cache.InvalidatePrefix(ordersPrefix)
	}
	return err
}

// InvalidateOnChange returns a change feed subscriber that drops the
// listings affected by a row change.
func InvalidateOnChange(c *QueryCache) func(domain.ChangeEvent) {
	return func(ev domain.ChangeEvent) {
		switch ev.Table {
		case "menu_items":
			c.InvalidatePrefix(menuPrefix)
		case "orders":
			c.InvalidatePrefix(ordersPrefix)
		case "profiles":
			// Staff order listings embed the customer name.
			c.InvalidatePrefix(ordersPrefix + "all:")
		}
	}
}
