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

func TestManageCart_Add(t *testing.T) {
	ctrl := gomock.NewController(t)
	menu := mocks.NewMockMenuRepository(ctrl)
	store := &memoryStorage{}
	dev := Device{ID: "d1", Storage: store}

	item := &domain.MenuItem{ID: "i1", Name: "Dosa", Price: 40, Available: true}
	menu.EXPECT().GetItem(gomock.Any(), "i1").Return(item, nil).Times(2)

	uc := NewManageCart(menu, testLogger())
	_, err := uc.Add(context.Background(), dev, "i1")
	require.NoError(t, err)
	cart, err := uc.Add(context.Background(), dev, "i1")
	require.NoError(t, err)

	assert.Equal(t, domain.Cart{{ItemID: "i1", Name: "Dosa", Price: 40, Qty: 2}}, cart)
	assert.Equal(t, cart, uc.View(context.Background(), dev))
}

func TestManageCart_AddUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	menu := mocks.NewMockMenuRepository(ctrl)
	store := &memoryStorage{}

	menu.EXPECT().GetItem(gomock.Any(), "i1").Return(&domain.MenuItem{ID: "i1", Name: "Idli"}, nil)

	uc := NewManageCart(menu, testLogger())
	_, err := uc.Add(context.Background(), Device{Storage: store}, "i1")

	assert.ErrorIs(t, err, domain.ErrItemUnavailable)
	assert.Empty(t, store.cart)
}

func TestManageCart_ChangeQtyAndRemove(t *testing.T) {
	store := &memoryStorage{cart: domain.Cart{
		{ItemID: "i1", Price: 10, Qty: 2},
		{ItemID: "i2", Price: 5, Qty: 1},
	}}
	dev := Device{ID: "d1", Storage: store}
	uc := NewManageCart(nil, testLogger())

	cart, err := uc.ChangeQty(context.Background(), dev, "i1", -5)
	require.NoError(t, err)
	assert.Equal(t, 1, cart[0].Qty)

	cart, err = uc.ChangeQty(context.Background(), dev, "i2", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, cart[1].Qty)
	assert.InDelta(t, 30.0, cart.Total(), 0.001)

	_, err = uc.ChangeQty(context.Background(), dev, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cart, err = uc.Remove(context.Background(), dev, "i1")
	require.NoError(t, err)
	assert.Len(t, cart, 1)

	_, err = uc.Remove(context.Background(), dev, "i1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
