package usecase

import (
	"context"
	"errors"
	"net/http"

	"eatoff/internal/domain/model"
	repo "eatoff/internal/repository"
)

type MarketplaceUsecase struct {
	marketplaces repo.MarketplaceRepository
	menuItems    repo.MenuItemRepository
}

func NewMarketplaceUsecase(marketplaces repo.MarketplaceRepository, menuItems repo.MenuItemRepository) *MarketplaceUsecase {
	return &MarketplaceUsecase{
		marketplaces: marketplaces,
		menuItems:    menuItems,
	}
}

// 無効なものも含めて返す（端末側で is_active を見て絞る）
func (u *MarketplaceUsecase) ListMarketplaces(ctx context.Context) ([]model.Marketplace, error) {
	list, err := u.marketplaces.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if list == nil {
		list = []model.Marketplace{}
	}
	return list, nil
}

func (u *MarketplaceUsecase) GetMarketplace(ctx context.Context, id int64) (model.Marketplace, error) {
	if id <= 0 {
		return model.Marketplace{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := u.marketplaces.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Marketplace{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Marketplace{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return m, nil
}

// レストランの注文可能なメニュー
func (u *MarketplaceUsecase) ListMenu(ctx context.Context, restaurantID int64) ([]model.MenuItem, error) {
	if restaurantID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := u.menuItems.ListByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	return items, nil
}
