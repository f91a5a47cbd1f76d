package repository

import (
	"context"

	"eatoff/internal/domain/model"
)

type MenuItemRepository interface {
	// Restaurantも一緒に読み込む
	FindByID(ctx context.Context, id int64) (model.MenuItem, error)
	ListByRestaurantID(ctx context.Context, restaurantID int64) ([]model.MenuItem, error)
}
