package db

import (
	"context"
	"fmt"

	"eatoff/internal/domain/model"

	"gorm.io/gorm"
)

// 初期マーケットプレイス。既定はRomania。
var defaultMarketplaces = []model.Marketplace{
	{Name: "Romania", Country: "Romania", CountryCode: "RO", CurrencyCode: "RON", CurrencySymbol: "Lei", IsActive: true, IsDefault: true},
	{Name: "Spain", Country: "Spain", CountryCode: "ES", CurrencyCode: "EUR", CurrencySymbol: "€", IsActive: true},
	{Name: "Germany", Country: "Germany", CountryCode: "DE", CurrencyCode: "EUR", CurrencySymbol: "€", IsActive: true},
	{Name: "United Kingdom", Country: "United Kingdom", CountryCode: "GB", CurrencyCode: "GBP", CurrencySymbol: "£", IsActive: false},
}

// SeedMarketplaces はテーブルが空のときだけ初期データを入れる。
func SeedMarketplaces(ctx context.Context, gormDB *gorm.DB) error {
	var count int64
	if err := gormDB.WithContext(ctx).Model(&model.Marketplace{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, m := range defaultMarketplaces {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	rows := make([]model.Marketplace, len(defaultMarketplaces))
	copy(rows, defaultMarketplaces)
	return gormDB.WithContext(ctx).Create(&rows).Error
}

type seedRestaurant struct {
	restaurant model.Restaurant
	items      []model.MenuItem
}

// デモ用のレストランとメニュー（既定マーケットプレイスに紐付ける）
var demoRestaurants = []seedRestaurant{
	{
		restaurant: model.Restaurant{Name: "Bella Vista", ImageURL: "https://images.unsplash.com/photo-1554118811-1e0d58224f24", IsActive: true},
		items: []model.MenuItem{
			{Name: "Margherita", Category: "Main", Price: 3200, ImageURL: "https://images.unsplash.com/photo-1565299624946-b28f40a0ca4b", IsAvailable: true},
			{Name: "Tiramisu", Category: "Dessert", Price: 1800, ImageURL: "https://images.unsplash.com/photo-1563379091339-03246963d51a", IsAvailable: true},
		},
	},
	{
		restaurant: model.Restaurant{Name: "Sakura Sushi", ImageURL: "https://images.unsplash.com/photo-1579584425555-c3ce17fd4351", IsActive: true},
		items: []model.MenuItem{
			{Name: "Salmon Nigiri", Category: "Main", Price: 2800, ImageURL: "https://images.unsplash.com/photo-1565557623262-b51c2513a641", IsAvailable: true},
			{Name: "Miso Soup", Category: "Starter", Price: 900, ImageURL: "https://images.unsplash.com/photo-1547592166-23ac45744acd", IsAvailable: true},
		},
	},
}

// SeedRestaurants はレストランが1件も無いときだけデモデータを入れる。
func SeedRestaurants(ctx context.Context, gormDB *gorm.DB) error {
	var count int64
	if err := gormDB.WithContext(ctx).Model(&model.Restaurant{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var mp model.Marketplace
	if err := gormDB.WithContext(ctx).Where("is_default = ?", true).First(&mp).Error; err != nil {
		return fmt.Errorf("seed: default marketplace: %w", err)
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range demoRestaurants {
			r := s.restaurant
			r.MarketplaceID = mp.ID
			if err := tx.Create(&r).Error; err != nil {
				return err
			}

			items := make([]model.MenuItem, len(s.items))
			for i, it := range s.items {
				it.RestaurantID = r.ID
				items[i] = it
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
