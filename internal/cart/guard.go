package cart

import (
	"context"
	"errors"

	"eatoff/internal/domain/model"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

var (
	ErrSignInRequired  = errors.New("sign in required")
	ErrNoPendingSwitch = errors.New("no pending restaurant switch")
	ErrPendingMismatch = errors.New("pending switch id does not match")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrItemNotInCart   = errors.New("item not in cart")
)

// カートに入れる1明細分の入力
type Addition struct {
	MenuItemID          int64
	RestaurantID        int64
	RestaurantName      string
	Name                string
	Price               int64
	Quantity            int64
	SpecialInstructions string
}

type AddResultKind string

const (
	AddResultOK             AddResultKind = "ok"
	AddResultSwitchRequired AddResultKind = "switch_required"
)

// Add の結果。SwitchRequired のときだけ Pending が入り、Cart は変わっていない。
type AddResult struct {
	Kind    AddResultKind
	Cart    model.Cart
	Pending *model.PendingAddition
}

// Guard は1セッション分のカート状態機械。並行利用は不可。
//
// カートは常に1つのレストランにだけ紐付く。別レストランの明細を足そうとすると
// カートは変えずに確認待ちにし、Confirm で入れ替え、Cancel で破棄する。
type Guard struct {
	store *Store
	newID func() string
	log   *log.Logger

	userID  int64
	cart    model.Cart
	pending *model.PendingAddition
}

func NewGuard(store *Store, newID func() string, logger *log.Logger) *Guard {
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = log.New("cart")
	}
	return &Guard{
		store: store,
		newID: newID,
		log:   logger,
		cart:  emptyCart(),
	}
}

func emptyCart() model.Cart {
	return model.Cart{Items: []model.CartLine{}}
}

// SetIdentity はログイン/ログアウト時に呼ぶ。userID == 0 は未ログイン。
// メモリ上のカートは新しいユーザーの保存済みカート（無ければ空）に置き換わる。
func (g *Guard) SetIdentity(ctx context.Context, userID int64) error {
	if err := g.store.PurgeLegacy(ctx); err != nil {
		g.log.Warnf("purge legacy cart keys: %v", err)
	}

	g.userID = userID
	g.cart = emptyCart()
	g.pending = nil

	if userID == 0 {
		return nil
	}

	c, p, err := g.store.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCorruptRecord) {
			// 壊れたレコードは空として扱う
			g.log.Warnf("discard stored cart user=%d: %v", userID, err)
			return nil
		}
		return err
	}
	g.cart = c
	if p != nil && !c.IsEmpty() && p.CurrentRestaurantID == c.RestaurantID {
		g.pending = p
	}
	return nil
}

// 保存済みのカートは残す
func (g *Guard) Logout(ctx context.Context) error {
	return g.SetIdentity(ctx, 0)
}

func (g *Guard) Authenticated() bool {
	return g.userID != 0
}

func (g *Guard) Cart() model.Cart {
	if !g.Authenticated() {
		return emptyCart()
	}
	return g.cart.Clone()
}

func (g *Guard) Pending() *model.PendingAddition {
	if !g.Authenticated() || g.pending == nil {
		return nil
	}
	p := *g.pending
	return &p
}

func (g *Guard) TotalItems() int64 {
	if !g.Authenticated() {
		return 0
	}
	return g.cart.TotalItems()
}

func (g *Guard) TotalPrice() int64 {
	if !g.Authenticated() {
		return 0
	}
	return g.cart.TotalPrice()
}

// Add は明細を追加する。別レストランの明細なら確認待ちを返す。
// 後から来た Add は前の確認待ちを破棄する。
func (g *Guard) Add(ctx context.Context, a Addition) (AddResult, error) {
	if !g.Authenticated() {
		return AddResult{}, ErrSignInRequired
	}
	if a.Quantity <= 0 {
		return AddResult{}, ErrInvalidQuantity
	}

	line := model.CartLine{
		MenuItemID:          a.MenuItemID,
		RestaurantID:        a.RestaurantID,
		Name:                a.Name,
		Price:               a.Price,
		Quantity:            a.Quantity,
		SpecialInstructions: a.SpecialInstructions,
	}

	if !g.cart.IsEmpty() && g.cart.RestaurantID != a.RestaurantID {
		p := &model.PendingAddition{
			ID:                    g.newID(),
			Line:                  line,
			RestaurantName:        a.RestaurantName,
			CurrentRestaurantID:   g.cart.RestaurantID,
			CurrentRestaurantName: g.cart.RestaurantName,
		}
		if err := g.store.SavePending(ctx, g.userID, p); err != nil {
			return AddResult{}, err
		}
		g.pending = p

		pc := *p
		return AddResult{Kind: AddResultSwitchRequired, Cart: g.cart.Clone(), Pending: &pc}, nil
	}

	next := g.cart.Clone()
	if next.IsEmpty() {
		next.RestaurantID = a.RestaurantID
		next.RestaurantName = a.RestaurantName
	}

	merged := false
	for i := range next.Items {
		if next.Items[i].MenuItemID == a.MenuItemID {
			next.Items[i].Quantity += a.Quantity
			next.Items[i].SpecialInstructions = a.SpecialInstructions
			merged = true
			break
		}
	}
	if !merged {
		next.Items = append(next.Items, line)
	}

	if err := g.commit(ctx, next, nil); err != nil {
		return AddResult{}, err
	}
	return AddResult{Kind: AddResultOK, Cart: g.cart.Clone()}, nil
}

// Confirm はカートを空にして確認待ちの明細だけにする。
func (g *Guard) Confirm(ctx context.Context, pendingID string) (model.Cart, error) {
	p, err := g.takePending(pendingID)
	if err != nil {
		return model.Cart{}, err
	}

	next := model.Cart{
		RestaurantID:   p.Line.RestaurantID,
		RestaurantName: p.RestaurantName,
		Items:          []model.CartLine{p.Line},
	}
	if err := g.commit(ctx, next, nil); err != nil {
		return model.Cart{}, err
	}
	return g.cart.Clone(), nil
}

// Cancel は確認待ちを捨てる。カートはそのまま。
func (g *Guard) Cancel(ctx context.Context, pendingID string) (model.Cart, error) {
	if _, err := g.takePending(pendingID); err != nil {
		return model.Cart{}, err
	}
	if err := g.store.SavePending(ctx, g.userID, nil); err != nil {
		return model.Cart{}, err
	}
	g.pending = nil
	return g.cart.Clone(), nil
}

func (g *Guard) Remove(ctx context.Context, menuItemID int64) (model.Cart, error) {
	if !g.Authenticated() {
		return model.Cart{}, ErrSignInRequired
	}

	next := g.cart.Clone()
	next.Items = next.Items[:0]
	for _, it := range g.cart.Items {
		if it.MenuItemID != menuItemID {
			next.Items = append(next.Items, it)
		}
	}
	if len(next.Items) == len(g.cart.Items) {
		return model.Cart{}, ErrItemNotInCart
	}
	if len(next.Items) == 0 {
		next = emptyCart()
	}

	if err := g.commit(ctx, next, g.pending); err != nil {
		return model.Cart{}, err
	}
	return g.cart.Clone(), nil
}

// qty <= 0 は削除と同じ
func (g *Guard) UpdateQuantity(ctx context.Context, menuItemID int64, qty int64) (model.Cart, error) {
	if !g.Authenticated() {
		return model.Cart{}, ErrSignInRequired
	}
	if qty <= 0 {
		return g.Remove(ctx, menuItemID)
	}

	next := g.cart.Clone()
	found := false
	for i := range next.Items {
		if next.Items[i].MenuItemID == menuItemID {
			next.Items[i].Quantity = qty
			found = true
			break
		}
	}
	if !found {
		return model.Cart{}, ErrItemNotInCart
	}

	if err := g.commit(ctx, next, g.pending); err != nil {
		return model.Cart{}, err
	}
	return g.cart.Clone(), nil
}

func (g *Guard) Clear(ctx context.Context) error {
	if !g.Authenticated() {
		return ErrSignInRequired
	}
	if err := g.store.Clear(ctx, g.userID); err != nil {
		return err
	}
	if err := g.store.PurgeLegacy(ctx); err != nil {
		g.log.Warnf("purge legacy cart keys: %v", err)
	}
	g.cart = emptyCart()
	g.pending = nil
	return nil
}

func (g *Guard) takePending(pendingID string) (model.PendingAddition, error) {
	if !g.Authenticated() {
		return model.PendingAddition{}, ErrSignInRequired
	}
	if g.pending == nil {
		return model.PendingAddition{}, ErrNoPendingSwitch
	}
	if pendingID != g.pending.ID {
		return model.PendingAddition{}, ErrPendingMismatch
	}
	return *g.pending, nil
}

// 保存に成功したときだけメモリ上の状態を進める。
// カートが空になったら確認待ちも意味がないので消す。
//
// 確認待ちの削除をカートの保存より先に行う。途中で失敗しても保存先は
// 「切り替え前のカート・確認待ちなし」か「変更前のまま」のどちらかになる。
// メモリ上の確認待ちは残すので、同じIDで Confirm をやり直せる。
func (g *Guard) commit(ctx context.Context, next model.Cart, pending *model.PendingAddition) error {
	if next.IsEmpty() {
		pending = nil
	}
	if pending == nil && g.pending != nil {
		if err := g.store.SavePending(ctx, g.userID, nil); err != nil {
			return err
		}
	}
	if err := g.store.Save(ctx, g.userID, next); err != nil {
		return err
	}
	g.cart = next
	g.pending = pending
	return nil
}
