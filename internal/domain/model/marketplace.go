package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

var (
	ErrInvalidCountryCode  = errors.New("invalid country code")
	ErrInvalidCurrencyCode = errors.New("invalid currency code")
)

// 地域ごとの販売単位（通貨・ロケール）
// 有効なものの中でIsDefaultは1つだけ。
type Marketplace struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Country        string    `gorm:"type:varchar(255);not null" json:"country"`
	CountryCode    string    `gorm:"type:varchar(2);not null;index" json:"country_code"`
	CurrencyCode   string    `gorm:"type:varchar(3);not null" json:"currency_code"`
	CurrencySymbol string    `gorm:"type:varchar(8);not null" json:"currency_symbol"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsDefault      bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 国コード（ISO 3166-1）と通貨コード（ISO 4217）をチェック
func (m Marketplace) Validate() error {
	if _, err := ParseCountryCode(m.CountryCode); err != nil {
		return fmt.Errorf("marketplace %q: %w", m.Name, err)
	}
	if _, err := currency.ParseISO(m.CurrencyCode); err != nil {
		return fmt.Errorf("marketplace %q: %w", m.Name, ErrInvalidCurrencyCode)
	}
	return nil
}

// MatchesCountry は大文字小文字を無視して国コードを比較する。
func (m Marketplace) MatchesCountry(code string) bool {
	return code != "" && strings.EqualFold(m.CountryCode, code)
}

// ParseCountryCode は2文字の国コードを正規化（大文字）して返す。
func ParseCountryCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != 2 {
		return "", ErrInvalidCountryCode
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return "", ErrInvalidCountryCode
	}
	return region.String(), nil
}
