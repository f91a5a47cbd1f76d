package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"eatoff/internal/domain/model"
)

var ErrPositionUnavailable = errors.New("position unavailable")

type PositionOptions struct {
	// 位置取得の上限時間
	Timeout time.Duration
	// この時間以内の位置なら再利用してよい
	MaximumAge time.Duration
}

// 端末の位置情報（ブラウザ/ネイティブのGeolocationに相当）
type LocationProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (model.Position, error)
}

// 座標から国を引く外部サービス
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat float64, lng float64) (model.DetectedLocation, error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CachedLocator は MaximumAge 以内の前回位置を再利用する。
type CachedLocator struct {
	inner LocationProvider
	clock Clock

	mu   sync.Mutex
	last *model.Position
}

func NewCachedLocator(inner LocationProvider, clock Clock) *CachedLocator {
	if clock == nil {
		clock = systemClock{}
	}
	return &CachedLocator{inner: inner, clock: clock}
}

func (l *CachedLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (model.Position, error) {
	now := l.clock.Now()

	l.mu.Lock()
	if l.last != nil && opts.MaximumAge > 0 && now.Sub(l.last.Timestamp) <= opts.MaximumAge {
		pos := *l.last
		l.mu.Unlock()
		return pos, nil
	}
	l.mu.Unlock()

	pos, err := l.inner.CurrentPosition(ctx, opts)
	if err != nil {
		return model.Position{}, err
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = now
	}

	l.mu.Lock()
	l.last = &pos
	l.mu.Unlock()

	return pos, nil
}
