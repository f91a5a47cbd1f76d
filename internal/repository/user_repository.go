package repository

import (
	"context"
	"time"

	"eatoff/internal/domain/model"
)

type UserRepository interface {
	// emailの重複はエラー
	Create(ctx context.Context, user *model.User) error
	// 無ければ ErrNotFound
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// 無ければ ErrNotFound
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	// ログアウト。発行済みトークンが全部無効になる
	IncrementTokenVersion(ctx context.Context, id int64) error
}
