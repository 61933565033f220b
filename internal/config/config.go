package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（既読状態ストア）
	RedisURL string

	// NATS（ジョブ・イベント発行）
	NATSURL string

	// OAuth providers
	TwitterConsumerKey    string
	TwitterConsumerSecret string
	FacebookAppID         string
	FacebookAppSecret     string
	AppDotNetClientID     string
	AppDotNetClientSecret string

	// Fetch
	FetchTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitAction  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	cfg.NATSURL = os.Getenv("NATS_URL")
	if cfg.NATSURL == "" {
		missing = append(missing, "NATS_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// プロバイダー資格情報は任意。未設定のプロバイダーは連携を受け付けない。
	cfg.TwitterConsumerKey = os.Getenv("TWITTER_CONSUMER_KEY")
	cfg.TwitterConsumerSecret = os.Getenv("TWITTER_CONSUMER_SECRET")
	cfg.FacebookAppID = os.Getenv("FACEBOOK_APP_ID")
	cfg.FacebookAppSecret = os.Getenv("FACEBOOK_APP_SECRET")
	cfg.AppDotNetClientID = os.Getenv("APPDOTNET_CLIENT_ID")
	cfg.AppDotNetClientSecret = os.Getenv("APPDOTNET_CLIENT_SECRET")

	// Optional fields with defaults
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAction = getEnvInt("RATE_LIMIT_ACTION", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
