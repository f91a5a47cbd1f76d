package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigはAPIサーバー全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORS）

	RedisAddr   string // 空ならカートはPostgresのkv_entriesに保存
	RedisPrefix string
	KafkaBroker string // 空ならカートイベントはcart_eventsテーブルへ

	ImageCacheSize int      // 画像キャッシュの件数上限
	ImageHosts     []string // /images が取りに行ってよいホスト（サブドメイン含む）
	SeedData       bool
}

// Loadは環境変数からAPIの設定を読む
func Load() (Config, error) {
	cacheSize, err := atoiOr("IMAGE_CACHE_SIZE", 256)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv: getenv("GO_ENV", "dev"),
		FEURL: os.Getenv("FE_URL"),

		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPrefix: getenv("REDIS_PREFIX", "eatoff:"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),

		ImageCacheSize: cacheSize,
		ImageHosts:     splitList(getenv("IMAGE_HOSTS", "images.unsplash.com")),
		SeedData:       os.Getenv("SEED_DATA") == "true",
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "prod" && cfg.FEURL == "" {
		return Config{}, fmt.Errorf("FE_URL is required")
	}

	return cfg, nil
}

// DeviceConfigは端末側ツール（cmd/locate）の設定
type DeviceConfig struct {
	APIBaseURL  string // マーケットプレイス一覧の取得元
	DBPath      string // 端末ローカルのSQLite
	GeocoderURL string // Nominatim

	// 位置情報。両方そろっていなければ検出しない
	Latitude  *float64
	Longitude *float64

	GeoTimeout time.Duration
}

func LoadDevice() (DeviceConfig, error) {
	lat, err := optionalFloat("DEVICE_LAT")
	if err != nil {
		return DeviceConfig{}, err
	}
	lng, err := optionalFloat("DEVICE_LNG")
	if err != nil {
		return DeviceConfig{}, err
	}

	timeout := 10 * time.Second
	if v := os.Getenv("GEO_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return DeviceConfig{}, fmt.Errorf("GEO_TIMEOUT must be duration: %w", err)
		}
		timeout = d
	}

	cfg := DeviceConfig{
		APIBaseURL:  os.Getenv("API_BASE_URL"),
		DBPath:      getenv("DEVICE_DB_PATH", "eatoff-device.db"),
		GeocoderURL: os.Getenv("GEOCODER_URL"),
		Latitude:    lat,
		Longitude:   lng,
		GeoTimeout:  timeout,
	}

	if cfg.APIBaseURL == "" {
		return DeviceConfig{}, fmt.Errorf("API_BASE_URL is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// カンマ区切り。空要素は捨てて小文字にそろえる
func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func optionalFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be number: %w", key, err)
	}
	return &f, nil
}
