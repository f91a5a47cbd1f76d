package repository

import "errors"

// 見つからない場合はこれに統一（gorm/redis/sqlのエラーはinfraで変換）
var ErrNotFound = errors.New("not found")
