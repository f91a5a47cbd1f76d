package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eatoff/internal/cart"
	"eatoff/internal/domain/model"
	repo "eatoff/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// CartUsecase は /cart の業務ロジックです。
// リクエストごとにユーザーのカートを読み込み、Guard で1レストラン制約を守ります。
type CartUsecase struct {
	menuItems repo.MenuItemRepository
	kv        repo.KVStore
	events    repo.CartEventSink
	locks     *keyedMutex
	newID     func() string
	log       *log.Logger
}

func NewCartUsecase(
	menuItems repo.MenuItemRepository,
	kv repo.KVStore,
	events repo.CartEventSink,
	logger *log.Logger,
) *CartUsecase {
	if logger == nil {
		logger = log.New("cart")
	}
	return &CartUsecase{
		menuItems: menuItems,
		kv:        kv,
		events:    events,
		locks:     newKeyedMutex(),
		newID:     uuid.NewString,
		log:       logger,
	}
}

type CartResponse struct {
	RestaurantID   int64            `json:"restaurant_id"`
	RestaurantName string           `json:"restaurant_name"`
	Items          []model.CartLine `json:"items"`
	TotalItems     int64            `json:"total_items"`
	Total          int64            `json:"total"`
}

const (
	AddStatusOK             = "ok"
	AddStatusSwitchRequired = "switch_required"
)

// switch_required のときだけ pending が入る（cart は変更前のまま）
type AddCartItemResponse struct {
	Status  string                 `json:"status"`
	Cart    CartResponse           `json:"cart"`
	Pending *model.PendingAddition `json:"pending,omitempty"`
}

type AddCartInput struct {
	MenuItemID          int64
	Quantity            int64
	SpecialInstructions string
}

// 未ログインは空のカート
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return toCartResponse(model.Cart{Items: []model.CartLine{}}), nil
	}

	var out CartResponse
	err := u.withGuard(ctx, userID, func(g *cart.Guard) error {
		out = toCartResponse(g.Cart())
		return nil
	})
	return out, err
}

// AddToCart は別レストランの商品なら switch_required を返し、カートは変えない。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (AddCartItemResponse, error) {
	if userID <= 0 {
		return AddCartItemResponse{}, mapCartError(cart.ErrSignInRequired)
	}
	if in.MenuItemID <= 0 {
		return AddCartItemResponse{}, NewHTTPError(http.StatusBadRequest, "invalid menu_item_id")
	}
	if in.Quantity < 1 {
		return AddCartItemResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	if len(in.SpecialInstructions) > 500 {
		return AddCartItemResponse{}, NewHTTPError(http.StatusBadRequest, "special_instructions too long")
	}

	item, err := u.menuItems.FindByID(ctx, in.MenuItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return AddCartItemResponse{}, NewHTTPError(http.StatusNotFound, "menu item not found")
	}
	if err != nil {
		return AddCartItemResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !item.IsAvailable || !item.Restaurant.IsActive {
		return AddCartItemResponse{}, NewHTTPError(http.StatusBadRequest, "menu item unavailable")
	}

	var out AddCartItemResponse
	err = u.withGuard(ctx, userID, func(g *cart.Guard) error {
		res, err := g.Add(ctx, cart.Addition{
			MenuItemID:          item.ID,
			RestaurantID:        item.RestaurantID,
			RestaurantName:      item.Restaurant.Name,
			Name:                item.Name,
			Price:               item.Price,
			Quantity:            in.Quantity,
			SpecialInstructions: in.SpecialInstructions,
		})
		if err != nil {
			return err
		}

		ev := model.CartEvent{
			UserID:       userID,
			Action:       model.CartActionItemAdded,
			RestaurantID: item.RestaurantID,
			MenuItemID:   item.ID,
			Quantity:     in.Quantity,
		}
		out = AddCartItemResponse{Status: AddStatusOK, Cart: toCartResponse(res.Cart)}
		if res.Kind == cart.AddResultSwitchRequired {
			ev.Action = model.CartActionSwitchRequested
			ev.PendingID = res.Pending.ID
			out.Status = AddStatusSwitchRequired
			out.Pending = res.Pending
		}
		u.emit(ctx, ev, res.Cart)
		return nil
	})
	return out, err
}

// 確認待ちの明細でカートを置き換える
func (u *CartUsecase) ConfirmSwitch(ctx context.Context, userID int64, pendingID string) (CartResponse, error) {
	var out CartResponse
	err := u.withGuard(ctx, userID, func(g *cart.Guard) error {
		c, err := g.Confirm(ctx, pendingID)
		if err != nil {
			return err
		}
		line := c.Items[0]
		u.emit(ctx, model.CartEvent{
			UserID:       userID,
			Action:       model.CartActionSwitchConfirmed,
			RestaurantID: c.RestaurantID,
			MenuItemID:   line.MenuItemID,
			Quantity:     line.Quantity,
			PendingID:    pendingID,
		}, c)
		out = toCartResponse(c)
		return nil
	})
	return out, err
}

func (u *CartUsecase) CancelSwitch(ctx context.Context, userID int64, pendingID string) (CartResponse, error) {
	var out CartResponse
	err := u.withGuard(ctx, userID, func(g *cart.Guard) error {
		c, err := g.Cancel(ctx, pendingID)
		if err != nil {
			return err
		}
		u.emit(ctx, model.CartEvent{
			UserID:       userID,
			Action:       model.CartActionSwitchCanceled,
			RestaurantID: c.RestaurantID,
			PendingID:    pendingID,
		}, c)
		out = toCartResponse(c)
		return nil
	})
	return out, err
}

// 数量変更（0以下は削除）
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, menuItemID int64, quantity int64) (CartResponse, error) {
	if userID > 0 && menuItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CartResponse
	err := u.withGuard(ctx, userID, func(g *cart.Guard) error {
		restaurantID := g.Cart().RestaurantID
		c, err := g.UpdateQuantity(ctx, menuItemID, quantity)
		if err != nil {
			return err
		}
		action := model.CartActionQuantityUpdated
		if quantity <= 0 {
			action = model.CartActionItemRemoved
		}
		u.emit(ctx, model.CartEvent{
			UserID:       userID,
			Action:       action,
			RestaurantID: restaurantID,
			MenuItemID:   menuItemID,
			Quantity:     quantity,
		}, c)
		out = toCartResponse(c)
		return nil
	})
	return out, err
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, menuItemID int64) (CartResponse, error) {
	if userID > 0 && menuItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CartResponse
	err := u.withGuard(ctx, userID, func(g *cart.Guard) error {
		restaurantID := g.Cart().RestaurantID
		c, err := g.Remove(ctx, menuItemID)
		if err != nil {
			return err
		}
		u.emit(ctx, model.CartEvent{
			UserID:       userID,
			Action:       model.CartActionItemRemoved,
			RestaurantID: restaurantID,
			MenuItemID:   menuItemID,
		}, c)
		out = toCartResponse(c)
		return nil
	})
	return out, err
}

func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	var out CartResponse
	err := u.withGuard(ctx, userID, func(g *cart.Guard) error {
		restaurantID := g.Cart().RestaurantID
		if err := g.Clear(ctx); err != nil {
			return err
		}
		u.emit(ctx, model.CartEvent{
			UserID:       userID,
			Action:       model.CartActionCleared,
			RestaurantID: restaurantID,
		}, g.Cart())
		out = toCartResponse(g.Cart())
		return nil
	})
	return out, err
}

// ユーザーのロックを取り、保存済みのカートを読み込んだ Guard で fn を実行する。
func (u *CartUsecase) withGuard(ctx context.Context, userID int64, fn func(g *cart.Guard) error) error {
	if userID <= 0 {
		return mapCartError(cart.ErrSignInRequired)
	}

	unlock := u.locks.Lock(userID)
	defer unlock()

	g := cart.NewGuard(cart.NewStore(u.kv), u.newID, u.log)
	if err := g.SetIdentity(ctx, userID); err != nil {
		u.log.Errorf("load cart user=%d: %v", userID, err)
		return NewHTTPError(http.StatusInternalServerError, "cart store error")
	}

	if err := fn(g); err != nil {
		if _, ok := AsHTTPError(err); ok {
			return err
		}
		return mapCartError(err)
	}
	return nil
}

func mapCartError(err error) error {
	switch {
	case errors.Is(err, cart.ErrSignInRequired):
		return NewHTTPError(http.StatusUnauthorized, "sign in required")
	case errors.Is(err, cart.ErrNoPendingSwitch):
		return NewHTTPError(http.StatusNotFound, "no pending switch")
	case errors.Is(err, cart.ErrPendingMismatch):
		return NewHTTPError(http.StatusConflict, "pending switch expired")
	case errors.Is(err, cart.ErrInvalidQuantity):
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	case errors.Is(err, cart.ErrItemNotInCart):
		return NewHTTPError(http.StatusNotFound, "not found")
	default:
		return NewHTTPError(http.StatusInternalServerError, "cart store error")
	}
}

// イベント送信の失敗はログだけ（カート操作は成功扱い）
func (u *CartUsecase) emit(ctx context.Context, ev model.CartEvent, c model.Cart) {
	if u.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now()
	if b, err := json.Marshal(c); err == nil {
		ev.CartJSON = string(b)
	}
	if err := u.events.Emit(ctx, ev); err != nil {
		u.log.Warnf("emit cart event %s user=%d: %v", ev.Action, ev.UserID, err)
	}
}

func toCartResponse(c model.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []model.CartLine{}
	}
	return CartResponse{
		RestaurantID:   c.RestaurantID,
		RestaurantName: c.RestaurantName,
		Items:          items,
		TotalItems:     c.TotalItems(),
		Total:          c.TotalPrice(),
	}
}
