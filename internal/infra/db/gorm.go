package db

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"eatoff/internal/domain/model"
	"eatoff/internal/infra/kv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN は DATABASE_URL、無ければ POSTGRES_* から組み立てる
func DSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getenv("POSTGRES_USER", "postgres"), getenv("POSTGRES_PASSWORD", "postgres")),
		Host:   getenv("POSTGRES_HOST", "localhost") + ":" + getenv("POSTGRES_PORT", "5432"),
		Path:   "/" + getenv("POSTGRES_DB", "eatoff"),
	}
	q := url.Values{}
	q.Set("sslmode", getenv("POSTGRES_SSLMODE", "disable"))
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()

	return u.String()
}

// Connect はDBに接続して *gorm.DB を返す。
func Connect() (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	// カートの読み書きは短いので小さめのプール
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gormDB, nil
}

// Migrate はテーブルを作成・更新する。
func Migrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&model.User{},
		&model.Marketplace{},
		&model.Restaurant{},
		&model.MenuItem{},
		&model.CartEvent{},
		&kv.Entry{},
	)
}

func getenv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
