package model

import (
	"time"

	"gorm.io/gorm"
)

type Restaurant struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	MarketplaceID int64          `gorm:"not null;index" json:"marketplace_id"`
	ImageURL      string         `gorm:"type:text" json:"image_url"`
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// 価格は最小通貨単位（例: 1250 = 12.50）
type MenuItem struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID int64          `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant     `gorm:"foreignKey:RestaurantID" json:"-"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	Category     string         `gorm:"type:varchar(50);not null" json:"category"`
	Price        int64          `gorm:"not null" json:"price"`
	ImageURL     string         `gorm:"type:text" json:"image_url"`
	IsAvailable  bool           `gorm:"not null;default:true" json:"is_available"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
