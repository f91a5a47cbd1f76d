package usecase

import (
	"context"
	"net/http"

	"eatoff/internal/domain/model"
	repo "eatoff/internal/repository"
)

// 管理者向け: カート操作ログの閲覧
type AdminCartEventUsecase struct {
	events repo.CartEventRepository
}

func NewAdminCartEventUsecase(events repo.CartEventRepository) *AdminCartEventUsecase {
	return &AdminCartEventUsecase{events: events}
}

type ListCartEventsInput struct {
	UserID *int64
	Action string
	Page   int
	Limit  int
}

type CartEventListOutput struct {
	Items []model.CartEvent `json:"items"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

var cartActions = map[model.CartAction]bool{
	model.CartActionItemAdded:       true,
	model.CartActionSwitchRequested: true,
	model.CartActionSwitchConfirmed: true,
	model.CartActionSwitchCanceled:  true,
	model.CartActionItemRemoved:     true,
	model.CartActionQuantityUpdated: true,
	model.CartActionCleared:         true,
}

func (u *AdminCartEventUsecase) List(ctx context.Context, in ListCartEventsInput) (CartEventListOutput, error) {
	if u.events == nil {
		return CartEventListOutput{}, NewHTTPError(http.StatusNotImplemented, "cart events are not stored")
	}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 50
	}
	if in.Page < 1 {
		return CartEventListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 200 {
		return CartEventListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	filter := repo.CartEventFilter{
		UserID: in.UserID,
		Limit:  in.Limit,
		Offset: (in.Page - 1) * in.Limit,
	}
	if in.Action != "" {
		a := model.CartAction(in.Action)
		if !cartActions[a] {
			return CartEventListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
		filter.Action = &a
	}

	items, err := u.events.List(ctx, filter)
	if err != nil {
		return CartEventListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if items == nil {
		items = []model.CartEvent{}
	}
	return CartEventListOutput{Items: items, Page: in.Page, Limit: in.Limit}, nil
}
