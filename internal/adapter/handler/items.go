package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/usecase"
)

// maxImageBytes bounds an uploaded item image.
const maxImageBytes = 5 << 20

// ItemsHandler serves the staff catalogue editor.
type ItemsHandler struct {
	menu  *usecase.ListMenu
	items *usecase.ManageItems
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(menu *usecase.ListMenu, items *usecase.ManageItems) *ItemsHandler {
	return &ItemsHandler{menu: menu, items: items}
}

// Dashboard handles GET /admin/dashboard: every item, newest first.
func (h *ItemsHandler) Dashboard(c echo.Context) error {
	items, err := h.menu.Execute(c.Request().Context(), true)
	if err != nil {
		return mapDomainError(err)
	}
	if items == nil {
		items = []domain.MenuItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// Create handles POST /admin/items.
func (h *ItemsHandler) Create(c echo.Context) error {
	in, image, err := readItemForm(c)
	if err != nil {
		return err
	}
	item, err := h.items.Create(c.Request().Context(), in, image)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

// Update handles PUT /admin/items/:id.
func (h *ItemsHandler) Update(c echo.Context) error {
	in, image, err := readItemForm(c)
	if err != nil {
		return err
	}
	item, err := h.items.Update(c.Request().Context(), c.Param("id"), in, image)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /admin/items/:id.
func (h *ItemsHandler) Delete(c echo.Context) error {
	if err := h.items.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleAvailability handles POST /admin/items/:id/availability.
func (h *ItemsHandler) ToggleAvailability(c echo.Context) error {
	item, err := h.items.ToggleAvailability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// readItemForm binds the item fields and the optional "image" file part.
func readItemForm(c echo.Context) (domain.ItemInput, *domain.Upload, error) {
	var in domain.ItemInput
	if err := bindAndValidate(c, &in); err != nil {
		return in, nil, err
	}

	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, echo.NewHTTPError(http.StatusBadRequest, "malformed image upload")
	}
	if fh.Size > maxImageBytes {
		return in, nil, mapDomainError(fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, maxImageBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return in, nil, echo.NewHTTPError(http.StatusBadRequest, "malformed image upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return in, nil, echo.NewHTTPError(http.StatusBadRequest, "malformed image upload")
	}
	return in, &domain.Upload{Filename: fh.Filename, Data: data}, nil
}
