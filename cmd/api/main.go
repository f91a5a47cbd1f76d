package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"eatoff/internal/config"
	"eatoff/internal/handler"
	"eatoff/internal/imagecache"
	"eatoff/internal/infra/db"
	"eatoff/internal/infra/events"
	"eatoff/internal/infra/image"
	"eatoff/internal/infra/kv"
	infraRepo "eatoff/internal/infra/repository"
	repo "eatoff/internal/repository"
	"eatoff/internal/server"
	"eatoff/internal/usecase"
	"eatoff/internal/validator"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := log.New("eatoff")
	logger.SetHeader("${time_rfc3339} ${level} ${prefix}")

	//.env は無くてもよい（本番は環境変数で渡す）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if cfg.GoEnv != "prod" {
		logger.SetLevel(log.DEBUG)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		logger.Fatalf("failed to connect db: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatalf("failed to migrate: %v", err)
	}
	if cfg.SeedData {
		if err := db.SeedMarketplaces(ctx, gormDB); err != nil {
			logger.Fatalf("failed to seed marketplaces: %v", err)
		}
		if err := db.SeedRestaurants(ctx, gormDB); err != nil {
			logger.Fatalf("failed to seed restaurants: %v", err)
		}
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	marketplaceRepo := infraRepo.NewMarketplaceGormRepository(gormDB)
	menuItemRepo := infraRepo.NewMenuItemGormRepository(gormDB)

	//カートの保存先: REDIS_ADDR があればRedis、無ければDB
	var cartKV repo.KVStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect redis: %v", err)
		}
		cartKV = kv.NewRedisStore(rdb, cfg.RedisPrefix)
		logger.Infof("cart store: redis %s", cfg.RedisAddr)
	} else {
		cartKV = kv.NewGormStore(gormDB)
		logger.Info("cart store: database")
	}

	//カート操作ログ: KAFKA_BROKER があればKafkaへ流す（管理画面の一覧はDB保存時のみ）
	var (
		sink      repo.CartEventSink
		eventRepo repo.CartEventRepository
	)
	if cfg.KafkaBroker != "" {
		writer := events.NewKafkaWriter(cfg.KafkaBroker, events.CartEventsTopic)
		defer writer.Close()
		sink = events.NewKafkaSink(writer)
		logger.Infof("cart events: kafka %s", cfg.KafkaBroker)
	} else {
		eventRepo = infraRepo.NewCartEventGormRepository(gormDB)
		sink = eventRepo
	}

	//画像キャッシュ
	images, err := imagecache.New(image.NewHTTPLoader(nil), cfg.ImageCacheSize, logger)
	if err != nil {
		logger.Fatalf("failed to create image cache: %v", err)
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo))
	marketplaceUC := usecase.NewMarketplaceUsecase(marketplaceRepo, menuItemRepo)
	cartUC := usecase.NewCartUsecase(menuItemRepo, cartKV, sink, logger)
	imageUC := usecase.NewImageUsecase(images, cfg.ImageHosts)
	adminEventUC := usecase.NewAdminCartEventUsecase(eventRepo)

	//Handler生成
	h := server.Handlers{
		Auth:        handler.NewAuthHandler(authUC),
		Marketplace: handler.NewMarketplaceHandler(marketplaceUC),
		Cart:        handler.NewCartHandler(cartUC),
		Image:       handler.NewImageHandler(imageUC),
		AdminEvents: handler.NewAdminCartEventHandler(adminEventUC),
	}

	e := server.New(cfg, userRepo, h, logger)

	//Server起動
	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	if err := server.Start(ctx, e, addr); err != nil {
		logger.Fatal(err)
	}
}
