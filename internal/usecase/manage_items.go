package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"canteen/internal/domain"
)

// ImagePathFunc names the object an uploaded image is stored under and
// reports its content type.
type ImagePathFunc func(filename string, data []byte) (objectPath, contentType string)

// ManageItems is the staff catalogue editor.
type ManageItems struct {
	menu      domain.MenuRepository
	objects   domain.ObjectStore
	imagePath ImagePathFunc
	logger    *slog.Logger
}

// NewManageItems creates a new ManageItems usecase.
func NewManageItems(m domain.MenuRepository, o domain.ObjectStore, p ImagePathFunc, l *slog.Logger) *ManageItems {
	return &ManageItems{menu: m, objects: o, imagePath: p, logger: l}
}

// Create stores a new item, uploading its image first when one is given.
func (uc *ManageItems) Create(ctx context.Context, in domain.ItemInput, image *domain.Upload) (*domain.MenuItem, error) {
	if err := uc.attach(ctx, &in, image); err != nil {
		return nil, err
	}
	item, err := uc.menu.CreateItem(ctx, in)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to create item", "name", in.Name, "error", err)
		return nil, err
	}
	uc.logger.InfoContext(ctx, "item created", "item_id", item.ID)
	return item, nil
}

// Update replaces an item's fields. Without a new image the stored one is kept.
func (uc *ManageItems) Update(ctx context.Context, id string, in domain.ItemInput, image *domain.Upload) (*domain.MenuItem, error) {
	if err := uc.attach(ctx, &in, image); err != nil {
		return nil, err
	}
	item, err := uc.menu.UpdateItem(ctx, id, in)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to update item", "item_id", id, "error", err)
		return nil, err
	}
	return item, nil
}

// Delete removes an item.
func (uc *ManageItems) Delete(ctx context.Context, id string) error {
	if err := uc.menu.DeleteItem(ctx, id); err != nil {
		uc.logger.ErrorContext(ctx, "failed to delete item", "item_id", id, "error", err)
		return err
	}
	uc.logger.InfoContext(ctx, "item deleted", "item_id", id)
	return nil
}

// ToggleAvailability flips an item's availability.
func (uc *ManageItems) ToggleAvailability(ctx context.Context, id string) (*domain.MenuItem, error) {
	return uc.menu.ToggleAvailability(ctx, id)
}

func (uc *ManageItems) attach(ctx context.Context, in *domain.ItemInput, image *domain.Upload) error {
	if image == nil || len(image.Data) == 0 {
		return nil
	}
	objectPath, contentType := uc.imagePath(image.Filename, image.Data)
	url, err := uc.objects.Upload(ctx, objectPath, image.Data, contentType)
	if err != nil {
		uc.logger.ErrorContext(ctx, "image upload failed", "path", objectPath, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	in.ImageURL = url
	return nil
}
