package repository

import (
	"context"

	"eatoff/internal/domain/model"
)

// カート操作ログの送り先（DB保存 or Kafka）
type CartEventSink interface {
	Emit(ctx context.Context, ev model.CartEvent) error
}

type CartEventFilter struct {
	UserID *int64
	Action *model.CartAction
	Limit  int
	Offset int
}

// DBに保存する場合は一覧も取れる。
type CartEventRepository interface {
	CartEventSink
	List(ctx context.Context, filter CartEventFilter) ([]model.CartEvent, error)
}
