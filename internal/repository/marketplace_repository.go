package repository

import (
	"context"

	"eatoff/internal/domain/model"
)

type MarketplaceRepository interface {
	// id昇順で全件
	List(ctx context.Context) ([]model.Marketplace, error)
	FindByID(ctx context.Context, id int64) (model.Marketplace, error)
}
