package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eatoff/internal/domain/model"
	"eatoff/internal/repository"
)

const (
	SelectedKey        = "marketplace:selected"
	DetectedCountryKey = "marketplace:detected_country"
)

var ErrCorruptRecord = errors.New("corrupt stored record")

// 端末に保存する選択済みマーケットプレイスと検出国
type Store struct {
	kv repository.KVStore
}

func NewStore(kv repository.KVStore) *Store {
	return &Store{kv: kv}
}

// 無ければ repository.ErrNotFound、壊れていれば ErrCorruptRecord
func (s *Store) Marketplace(ctx context.Context) (model.Marketplace, error) {
	var m model.Marketplace
	if err := s.load(ctx, SelectedKey, &m); err != nil {
		return model.Marketplace{}, err
	}
	return m, nil
}

func (s *Store) SaveMarketplace(ctx context.Context, m model.Marketplace) error {
	return s.save(ctx, SelectedKey, m)
}

func (s *Store) DetectedCountry(ctx context.Context) (model.DetectedLocation, error) {
	var loc model.DetectedLocation
	if err := s.load(ctx, DetectedCountryKey, &loc); err != nil {
		return model.DetectedLocation{}, err
	}
	if loc.CountryCode == "" {
		return model.DetectedLocation{}, ErrCorruptRecord
	}
	return loc, nil
}

func (s *Store) SaveDetectedCountry(ctx context.Context, loc model.DetectedLocation) error {
	return s.save(ctx, DetectedCountryKey, loc)
}

// Clear は選択と検出国の両方を消す
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, SelectedKey, DetectedCountryKey)
}

func (s *Store) load(ctx context.Context, key string, dst interface{}) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%s: %w", key, ErrCorruptRecord)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, string(b))
}
