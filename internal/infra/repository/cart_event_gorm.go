package repository

import (
	"context"

	"eatoff/internal/domain/model"
	repo "eatoff/internal/repository"

	"gorm.io/gorm"
)

type cartEventGormRepository struct {
	db *gorm.DB
}

func NewCartEventGormRepository(db *gorm.DB) repo.CartEventRepository {
	return &cartEventGormRepository{db: db}
}

func (r *cartEventGormRepository) Emit(ctx context.Context, ev model.CartEvent) error {
	return r.db.WithContext(ctx).Create(&ev).Error
}

func (r *cartEventGormRepository) List(ctx context.Context, filter repo.CartEventFilter) ([]model.CartEvent, error) {
	q := r.db.WithContext(ctx).Model(&model.CartEvent{})

	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", *filter.Action)
	}

	//新しい順
	q = q.Order("created_at DESC")

	// limit/offset
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	q = q.Limit(limit).Offset(filter.Offset)

	var events []model.CartEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
