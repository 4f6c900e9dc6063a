package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"canteen/internal/domain"
	"canteen/internal/mocks"
)

func TestPlaceOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockOrderRepository(ctrl)
	store := &memoryStorage{cart: domain.Cart{
		{ItemID: "i1", Name: "Dosa", Price: 40, Qty: 2},
		{ItemID: "i2", Name: "Tea", Price: 12.5, Qty: 1},
	}}

	orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, o domain.Order) (*domain.Order, error) {
			assert.Equal(t, "u1", o.UserID)
			assert.Equal(t, domain.StatusPending, o.Status)
			assert.InDelta(t, 92.5, o.Total, 0.001)
			assert.Len(t, o.Items, 2)
			o.ID = "o1"
			return &o, nil
		})

	placed := 0
	uc := NewPlaceOrder(orders, func() { placed++ }, testLogger())
	order, err := uc.Execute(context.Background(), Device{ID: "d1", Storage: store}, "u1")

	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.Empty(t, store.cart)
	assert.Equal(t, 1, placed)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockOrderRepository(ctrl)

	uc := NewPlaceOrder(orders, nil, testLogger())
	_, err := uc.Execute(context.Background(), Device{Storage: &memoryStorage{}}, "u1")

	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestPlaceOrder_KeepsCartOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockOrderRepository(ctrl)
	store := &memoryStorage{cart: domain.Cart{{ItemID: "i1", Price: 1, Qty: 1}}}

	orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, domain.ErrBackendUnavailable)

	uc := NewPlaceOrder(orders, nil, testLogger())
	_, err := uc.Execute(context.Background(), Device{Storage: store}, "u1")

	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Len(t, store.cart, 1)
}

func TestOrderHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockOrderRepository(ctrl)
	want := []domain.Order{{ID: "o2"}, {ID: "o1"}}
	orders.EXPECT().ListOrdersByUser(gomock.Any(), "u1").Return(want, nil)

	got, err := NewOrderHistory(orders, testLogger()).Execute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestListMenu(t *testing.T) {
	ctrl := gomock.NewController(t)
	menu := mocks.NewMockMenuRepository(ctrl)
	menu.EXPECT().ListItems(gomock.Any(), true).Return([]domain.MenuItem{{ID: "i1"}}, nil)
	menu.EXPECT().ListItems(gomock.Any(), false).Return(nil, domain.ErrBackendUnavailable)

	uc := NewListMenu(menu, testLogger())
	items, err := uc.Execute(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = uc.Execute(context.Background(), true)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}
