package repository

import (
	"context"
	"errors"

	"eatoff/internal/domain/model"
	repo "eatoff/internal/repository"

	"gorm.io/gorm"
)

type MenuItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewMenuItemGormRepository(db *gorm.DB) *MenuItemGormRepository {
	return &MenuItemGormRepository{db: db}
}

// 明細追加に必要なレストラン名も一緒に取る
func (r *MenuItemGormRepository) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var item model.MenuItem

	err := r.db.WithContext(ctx).
		Preload("Restaurant").
		Where("id = ?", id).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MenuItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.MenuItem{}, err
	}
	return item, nil
}

// 提供中のメニューだけ
func (r *MenuItemGormRepository) ListByRestaurantID(ctx context.Context, restaurantID int64) ([]model.MenuItem, error) {
	var items []model.MenuItem

	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_available = ?", restaurantID, true).
		Order("category asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.MenuItem{}, err
	}
	return items, nil
}
