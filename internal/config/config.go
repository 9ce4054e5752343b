// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 実行環境
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvLocal       = "local"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Environment
	Environment string

	// Auth
	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string
	LocalUserID  string

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral  int
	RateLimitGenerate int

	// Summary generator
	SummaryGeneratorURL     string
	SummaryGeneratorTimeout time.Duration

	// Logging
	LogFile          string
	LogLevel         string
	LogRetentionDays int

	// Server
	ServerPort string

	// CORS（カンマ区切りで複数指定可、"*"で全許可）
	CORSAllowedOrigin string
}

// IsLocal はローカル開発モード（認証バイパス有効）の場合にtrueを返す。
func (c *Config) IsLocal() bool {
	return c.Environment == EnvLocal
}

// LoadDotEnv はカレントディレクトリの.envファイルを読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
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

	cfg.Environment = strings.ToLower(getEnvString("ENVIRONMENT", EnvProduction))
	switch cfg.Environment {
	case EnvProduction, EnvDevelopment, EnvLocal:
	default:
		return nil, fmt.Errorf("invalid ENVIRONMENT: %q (allowed: production, development, local)", cfg.Environment)
	}

	cfg.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	cfg.JWTPublicKey = os.Getenv("AUTH_JWT_PUBLIC_KEY")
	if cfg.JWTSecret == "" && cfg.JWTPublicKey == "" && cfg.Environment != EnvLocal {
		missing = append(missing, "AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWTIssuer = getEnvString("AUTH_JWT_ISSUER", "")
	cfg.LocalUserID = getEnvString("LOCAL_USER_ID", "user1")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitGenerate = getEnvInt("RATE_LIMIT_GENERATE", 10)
	cfg.SummaryGeneratorURL = getEnvString("SUMMARY_GENERATOR_URL", "")
	cfg.SummaryGeneratorTimeout = getEnvDuration("SUMMARY_GENERATOR_TIMEOUT", 30*time.Second)
	cfg.LogFile = getEnvString("LOG_FILE", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogRetentionDays = getEnvInt("LOG_RETENTION_DAYS", 14)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

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
