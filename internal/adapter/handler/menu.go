package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/usecase"
)

// MenuHandler serves the student menu and cart.
type MenuHandler struct {
	menu  *usecase.ListMenu
	cart  *usecase.ManageCart
	place *usecase.PlaceOrder
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(menu *usecase.ListMenu, cart *usecase.ManageCart, place *usecase.PlaceOrder) *MenuHandler {
	return &MenuHandler{menu: menu, cart: cart, place: place}
}

type addToCartRequest struct {
	ItemID string `json:"item_id" form:"item_id" validate:"required"`
}

type changeQtyRequest struct {
	Delta int `json:"delta" form:"delta" validate:"nonzero_delta"`
}

type cartResponse struct {
	Lines domain.Cart `json:"lines"`
	Total float64     `json:"total"`
}

func newCartResponse(cart domain.Cart) cartResponse {
	if cart == nil {
		cart = domain.Cart{}
	}
	return cartResponse{Lines: cart, Total: cart.Total()}
}

// List handles GET /menu: available items, newest first.
func (h *MenuHandler) List(c echo.Context) error {
	items, err := h.menu.Execute(c.Request().Context(), false)
	if err != nil {
		return mapDomainError(err)
	}
	if items == nil {
		items = []domain.MenuItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// AddToCart handles POST /menu/cart.
func (h *MenuHandler) AddToCart(c echo.Context) error {
	var req addToCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cart, err := h.cart.Add(c.Request().Context(), deviceFrom(c), req.ItemID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newCartResponse(cart))
}

// Cart handles GET /cart.
func (h *MenuHandler) Cart(c echo.Context) error {
	return c.JSON(http.StatusOK, newCartResponse(h.cart.View(c.Request().Context(), deviceFrom(c))))
}

// ChangeQty handles PATCH /cart/items/:id.
func (h *MenuHandler) ChangeQty(c echo.Context) error {
	var req changeQtyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cart, err := h.cart.ChangeQty(c.Request().Context(), deviceFrom(c), c.Param("id"), req.Delta)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newCartResponse(cart))
}

// RemoveFromCart handles DELETE /cart/items/:id.
func (h *MenuHandler) RemoveFromCart(c echo.Context) error {
	cart, err := h.cart.Remove(c.Request().Context(), deviceFrom(c), c.Param("id"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newCartResponse(cart))
}

// Checkout handles POST /cart/checkout.
func (h *MenuHandler) Checkout(c echo.Context) error {
	order, err := h.place.Execute(c.Request().Context(), deviceFrom(c), userID(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, order)
}
