package usecase

import (
	"context"
	"log/slog"

	"canteen/internal/domain"
)

// ListMenu returns menu items, newest first.
type ListMenu struct {
	menu   domain.MenuRepository
	logger *slog.Logger
}

// NewListMenu creates a new ListMenu usecase.
func NewListMenu(m domain.MenuRepository, l *slog.Logger) *ListMenu {
	return &ListMenu{menu: m, logger: l}
}

// Execute lists available items, or every item when all is set.
func (uc *ListMenu) Execute(ctx context.Context, all bool) ([]domain.MenuItem, error) {
	items, err := uc.menu.ListItems(ctx, !all)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to list menu items", "error", err)
		return nil, err
	}
	return items, nil
}
