package geo

import (
	"context"
	"time"

	"eatoff/internal/domain/model"
	"eatoff/internal/marketplace"
)

// 固定座標を返す位置情報（CLIやGPSの無い端末用）
type StaticLocator struct {
	pos *model.Position
}

// NewStaticLocator は座標が無ければ常に ErrPositionUnavailable を返す。
func NewStaticLocator(lat *float64, lng *float64) *StaticLocator {
	if lat == nil || lng == nil {
		return &StaticLocator{}
	}
	return &StaticLocator{pos: &model.Position{Latitude: *lat, Longitude: *lng}}
}

func (l *StaticLocator) CurrentPosition(ctx context.Context, opts marketplace.PositionOptions) (model.Position, error) {
	if err := ctx.Err(); err != nil {
		return model.Position{}, err
	}
	if l.pos == nil {
		return model.Position{}, marketplace.ErrPositionUnavailable
	}
	pos := *l.pos
	pos.Timestamp = time.Now()
	return pos, nil
}
