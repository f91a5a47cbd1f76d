package model

import "time"

// 端末の位置
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// 逆ジオコーディングの結果。端末に保存して次回に使う。
type DetectedLocation struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}
