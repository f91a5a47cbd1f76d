package repository

import "context"

// 端末・サーバー共通のキーバリュー保存先。
// 値は常にレコード全体で上書きする（部分更新なし）。
type KVStore interface {
	// 無ければErrNotFound
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	// 存在しないキーはエラーにしない
	Delete(ctx context.Context, keys ...string) error
}
