package repository

import (
	"context"
	"errors"

	"eatoff/internal/domain/model"
	repo "eatoff/internal/repository"

	"gorm.io/gorm"
)

type MarketplaceGormRepository struct {
	db *gorm.DB
}

// DI
func NewMarketplaceGormRepository(db *gorm.DB) *MarketplaceGormRepository {
	return &MarketplaceGormRepository{db: db}
}

// カタログは無効なものも含めてid順で返す（絞り込みは端末側）
func (r *MarketplaceGormRepository) List(ctx context.Context) ([]model.Marketplace, error) {
	var list []model.Marketplace

	if err := r.db.WithContext(ctx).
		Order("id asc").
		Find(&list).Error; err != nil {
		return []model.Marketplace{}, err
	}
	return list, nil
}

func (r *MarketplaceGormRepository) FindByID(ctx context.Context, id int64) (model.Marketplace, error) {
	var m model.Marketplace

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Marketplace{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Marketplace{}, err
	}
	return m, nil
}
