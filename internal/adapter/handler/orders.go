package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/usecase"
)

// OrdersHandler serves order history and the kitchen order board.
type OrdersHandler struct {
	history *usecase.OrderHistory
	staff   *usecase.StaffOrders
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(history *usecase.OrderHistory, staff *usecase.StaffOrders) *OrdersHandler {
	return &OrdersHandler{history: history, staff: staff}
}

type advanceRequest struct {
	Status string `json:"status" form:"status" validate:"required,order_status"`
}

// History handles GET /orders/history.
func (h *OrdersHandler) History(c echo.Context) error {
	orders, err := h.history.Execute(c.Request().Context(), userID(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, nonNilOrders(orders))
}

// Board handles GET /staff/orders with an optional ?status= filter.
func (h *OrdersHandler) Board(c echo.Context) error {
	orders, err := h.staff.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, nonNilOrders(orders))
}

// Advance handles POST /staff/orders/:id/status.
func (h *OrdersHandler) Advance(c echo.Context) error {
	var req advanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.staff.Advance(c.Request().Context(), c.Param("id"), domain.OrderStatus(req.Status)); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func nonNilOrders(orders []domain.Order) []domain.Order {
	if orders == nil {
		return []domain.Order{}
	}
	return orders
}
