package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eatoff/internal/domain/model"
	"eatoff/internal/repository"
)

// 旧バージョンが書いていたユーザー無しのキー
var legacyKeys = []string{"cart:items", "cart:restaurant", "cart:pending"}

var ErrCorruptRecord = errors.New("corrupt cart record")

func itemsKey(userID int64) string {
	return fmt.Sprintf("cart:%d:items", userID)
}

func restaurantKey(userID int64) string {
	return fmt.Sprintf("cart:%d:restaurant", userID)
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("cart:%d:pending", userID)
}

type restaurantRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ユーザーごとのカートを KVStore に保存する
type Store struct {
	kv repository.KVStore
}

func NewStore(kv repository.KVStore) *Store {
	return &Store{kv: kv}
}

// 何も保存されていなければ空のカートと nil を返す
func (s *Store) Load(ctx context.Context, userID int64) (model.Cart, *model.PendingAddition, error) {
	c := model.Cart{Items: []model.CartLine{}}

	var items []model.CartLine
	found, err := s.load(ctx, itemsKey(userID), &items)
	if err != nil {
		return model.Cart{Items: []model.CartLine{}}, nil, err
	}
	if found && len(items) > 0 {
		var rest restaurantRecord
		ok, err := s.load(ctx, restaurantKey(userID), &rest)
		if err != nil {
			return model.Cart{Items: []model.CartLine{}}, nil, err
		}
		if !ok || rest.ID == 0 {
			return model.Cart{Items: []model.CartLine{}}, nil, fmt.Errorf("%s: %w", restaurantKey(userID), ErrCorruptRecord)
		}
		for _, it := range items {
			if it.RestaurantID != rest.ID || it.Quantity <= 0 {
				return model.Cart{Items: []model.CartLine{}}, nil, fmt.Errorf("%s: %w", itemsKey(userID), ErrCorruptRecord)
			}
		}
		c.RestaurantID = rest.ID
		c.RestaurantName = rest.Name
		c.Items = items
	}

	var pending model.PendingAddition
	ok, err := s.load(ctx, pendingKey(userID), &pending)
	if err != nil {
		return c, nil, err
	}
	if !ok {
		return c, nil, nil
	}
	return c, &pending, nil
}

// Save はカート全体を書き直す。空なら紐付けごと消す。
func (s *Store) Save(ctx context.Context, userID int64, c model.Cart) error {
	if c.IsEmpty() {
		return s.kv.Delete(ctx, itemsKey(userID), restaurantKey(userID))
	}
	if err := s.save(ctx, itemsKey(userID), c.Items); err != nil {
		return err
	}
	return s.save(ctx, restaurantKey(userID), restaurantRecord{ID: c.RestaurantID, Name: c.RestaurantName})
}

// nil なら確認待ちを消す
func (s *Store) SavePending(ctx context.Context, userID int64, p *model.PendingAddition) error {
	if p == nil {
		return s.kv.Delete(ctx, pendingKey(userID))
	}
	return s.save(ctx, pendingKey(userID), p)
}

func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.kv.Delete(ctx, itemsKey(userID), restaurantKey(userID), pendingKey(userID))
}

func (s *Store) PurgeLegacy(ctx context.Context) error {
	return s.kv.Delete(ctx, legacyKeys...)
}

func (s *Store) load(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("%s: %w", key, ErrCorruptRecord)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, string(b))
}
