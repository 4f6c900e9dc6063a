package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"canteen/internal/domain"
)

const menuColumns = `id::text, name, description, price::float8, available, image_url, created_at`

// MenuRepository implements domain.MenuRepository.
type MenuRepository struct {
	db     DB
	logger *slog.Logger
}

// NewMenuRepository creates a new MenuRepository.
func NewMenuRepository(db DB, logger *slog.Logger) *MenuRepository {
	return &MenuRepository{db: db, logger: logger}
}

var _ domain.MenuRepository = (*MenuRepository)(nil)

// ListItems returns menu items newest first.
func (r *MenuRepository) ListItems(ctx context.Context, onlyAvailable bool) ([]domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items`
	if onlyAvailable {
		query += ` WHERE available`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "list menu items")
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, mapError(err, "scan menu item")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list menu items")
	}
	return items, nil
}

// GetItem returns one menu item.
func (r *MenuRepository) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE id = $1`
	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "menu item")
	}
	return item, nil
}

// CreateItem inserts a menu item.
func (r *MenuRepository) CreateItem(ctx context.Context, in domain.ItemInput) (*domain.MenuItem, error) {
	query := `
		INSERT INTO menu_items (name, description, price, available, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + menuColumns

	item, err := scanItem(r.db.QueryRow(ctx, query, in.Name, in.Description, in.Price, in.Available, in.ImageURL))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create menu item", "name", in.Name, "error", err)
		return nil, mapError(err, "create menu item")
	}
	return item, nil
}

// UpdateItem replaces the fields of a menu item. An empty ImageURL keeps the
// current image.
func (r *MenuRepository) UpdateItem(ctx context.Context, id string, in domain.ItemInput) (*domain.MenuItem, error) {
	query := `
		UPDATE menu_items
		SET name = $2, description = $3, price = $4, available = $5,
		    image_url = COALESCE(NULLIF($6, ''), image_url)
		WHERE id = $1
		RETURNING ` + menuColumns

	item, err := scanItem(r.db.QueryRow(ctx, query, id, in.Name, in.Description, in.Price, in.Available, in.ImageURL))
	if err != nil {
		return nil, mapError(err, "menu item")
	}
	return item, nil
}

// DeleteItem removes a menu item.
func (r *MenuRepository) DeleteItem(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete menu item")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu item", domain.ErrNotFound)
	}
	return nil
}

// ToggleAvailability flips the available flag of a menu item.
func (r *MenuRepository) ToggleAvailability(ctx context.Context, id string) (*domain.MenuItem, error) {
	query := `
		UPDATE menu_items
		SET available = NOT available
		WHERE id = $1
		RETURNING ` + menuColumns

	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "menu item")
	}
	return item, nil
}

func scanItem(row pgx.Row) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Available, &item.ImageURL, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
