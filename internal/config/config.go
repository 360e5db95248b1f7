// Package config は環境変数からサービスの設定を読み込む。
//
// カレントディレクトリに.envファイルがあれば先に読み込む。
// 既に設定されている環境変数は.envの値で上書きしない。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/token"
)

// DevJWTSecret はJWT_SECRET未設定時に使う開発用のシークレット。
const DevJWTSecret = "dev-secret-key"

// Config は通知サービスの設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// JWTSecret はIDトークンの署名に使う共有シークレット。
	JWTSecret string
	// TokenTTL はIDトークンの有効期間。
	TokenTTL time.Duration
	// RedisURL はRedis Pub/Sub中継の接続先。空の場合は中継を使わない。
	RedisURL string
	// RedisChannel はRedis Pub/Subのチャネル名。
	RedisChannel string
	// AllowedOrigins はCORSとWebSocketで許可するOrigin。
	AllowedOrigins []string
	// Debug はデバッグログを出力するかどうか。
	Debug bool
}

// Load は環境変数から設定を読み込む。
// 値の形式が不正な場合はエラーを返す。
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug(".envファイルが見つからないため環境変数のみを使います")
	}

	ttl, err := time.ParseDuration(getEnvOr("TOKEN_TTL", token.DefaultTTL.String()))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTLの形式が不正です: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTLは正の値である必要があります: %s", ttl)
	}

	debug, err := strconv.ParseBool(getEnvOr("DEBUG", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("DEBUGの形式が不正です: %w", err)
	}

	cfg := Config{
		Port:           getEnvOr("PORT", "8086"),
		DatabasePath:   getEnvOr("DATABASE_PATH", "/data/notification.db"),
		JWTSecret:      getEnvOr("JWT_SECRET", DevJWTSecret),
		TokenTTL:       ttl,
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisChannel:   getEnvOr("REDIS_CHANNEL", "notifications"),
		AllowedOrigins: splitList(getEnvOr("ALLOWED_ORIGINS", "*")),
		Debug:          debug,
	}
	if cfg.JWTSecret == DevJWTSecret {
		log.Warn("JWT_SECRETが未設定のため開発用シークレットを使います")
	}
	return cfg, nil
}

// getEnvOr は環境変数の値を返す。未設定の場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの値を分割し、空要素を除く。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
