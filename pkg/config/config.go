package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix      = "IMAGESTUDIO"
	configFileName = "imagestudio"

	apiKeyPrefix    = "AIza"
	apiKeyMinLength = 30
)

// セッションの保存先
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Gemini     GeminiConfig
	Tokens     TokensConfig
	Generation GenerationConfig
	Edit       EditConfig
	HTTP       HTTPConfig
	Cache      CacheConfig
	Session    SessionConfig
	Logger     LoggerConfig
}

// GeminiConfig は Imagen / Gemini の接続設定です。
type GeminiConfig struct {
	APIKey      string
	// BaseURL は中継サーバー向けの上書きです。空なら各クライアントの既定値を使います。
	BaseURL     string
	ImagenModel string
	EditModel   string
	VisionModel string
}

// TokensConfig はトークン予算の設定です。
type TokensConfig struct {
	// Total が 0 のときは保存済みの総量 (初回は 1000) をそのまま使います。
	Total int
}

// GenerationConfig は画像生成バッチの設定です。
type GenerationConfig struct {
	InterCallDelay time.Duration
	BatchTimeout   time.Duration
}

// EditConfig は画像編集の設定です。
type EditConfig struct {
	FallbackEffect string
	InlineLimit    int
}

// HTTPConfig は外部 HTTP 呼び出しの設定です。
type HTTPConfig struct {
	Timeout time.Duration
}

// CacheConfig は合成済みキャンバスのキャッシュ設定です。
type CacheConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// SessionConfig はセッション状態の保存先の設定です。
type SessionConfig struct {
	Backend       string
	FilePath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// LoggerConfig はログ出力の設定です。
type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load は設定ファイル (任意) と環境変数から設定を読み込みます。
// 環境変数は IMAGESTUDIO_ を前置し、キーの "." を "_" に置き換えた名前です (例: IMAGESTUDIO_GEMINI_API_KEY)。
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "./config"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables
	}

	cfg := &Config{}

	cfg.Gemini.APIKey = strings.TrimSpace(v.GetString("gemini.api_key"))
	cfg.Gemini.BaseURL = v.GetString("gemini.base_url")
	cfg.Gemini.ImagenModel = v.GetString("gemini.imagen_model")
	cfg.Gemini.EditModel = v.GetString("gemini.edit_model")
	cfg.Gemini.VisionModel = v.GetString("gemini.vision_model")

	cfg.Tokens.Total = v.GetInt("tokens.total")

	cfg.Generation.InterCallDelay = v.GetDuration("generation.inter_call_delay")
	cfg.Generation.BatchTimeout = v.GetDuration("generation.batch_timeout")

	cfg.Edit.FallbackEffect = v.GetString("edit.fallback_effect")
	cfg.Edit.InlineLimit = v.GetInt("edit.inline_limit")

	cfg.HTTP.Timeout = v.GetDuration("http.timeout")

	cfg.Cache.TTL = v.GetDuration("cache.ttl")
	cfg.Cache.CleanupInterval = v.GetDuration("cache.cleanup_interval")

	cfg.Session.Backend = strings.ToLower(v.GetString("session.backend"))
	cfg.Session.FilePath = v.GetString("session.file_path")
	cfg.Session.RedisAddr = v.GetString("session.redis_addr")
	cfg.Session.RedisPassword = v.GetString("session.redis_password")
	cfg.Session.RedisDB = v.GetInt("session.redis_db")
	cfg.Session.RedisKey = v.GetString("session.redis_key")

	cfg.Logger.Level = strings.ToLower(v.GetString("logger.level"))
	cfg.Logger.Encoding = strings.ToLower(v.GetString("logger.encoding"))

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.imagen_model", "imagen-4.0-generate-001")
	v.SetDefault("gemini.edit_model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.vision_model", "gemini-2.5-flash")

	v.SetDefault("tokens.total", 0)

	v.SetDefault("generation.inter_call_delay", "1.5s")
	v.SetDefault("generation.batch_timeout", "2m")

	v.SetDefault("edit.fallback_effect", "sunset")
	v.SetDefault("edit.inline_limit", 15<<20)

	v.SetDefault("http.timeout", "60s")

	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.file_path", "./imagestudio-session.json")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.redis_key", "imagestudio:session")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "text")
}

func validate(cfg *Config) error {
	if err := ValidateAPIKey(cfg.Gemini.APIKey); err != nil {
		return err
	}
	if cfg.Tokens.Total < 0 {
		return fmt.Errorf("tokens.total must not be negative, got %d", cfg.Tokens.Total)
	}
	if cfg.Generation.BatchTimeout <= 0 {
		return fmt.Errorf("generation.batch_timeout must be positive")
	}
	if cfg.Generation.InterCallDelay < 0 {
		return fmt.Errorf("generation.inter_call_delay must not be negative")
	}

	switch cfg.Session.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Session.FilePath == "" {
			return fmt.Errorf("session.file_path is required for the file backend")
		}
	case BackendRedis:
		if cfg.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported session.backend: %q", cfg.Session.Backend)
	}

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported logger.level: %q", cfg.Logger.Level)
	}
	switch cfg.Logger.Encoding {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported logger.encoding: %q", cfg.Logger.Encoding)
	}
	return nil
}

// ValidateAPIKey は Gemini API キーの形式だけを確認します。キーが有効かどうかは確認しません。
func ValidateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("gemini.api_key is required")
	}
	if !strings.HasPrefix(key, apiKeyPrefix) || len(key) < apiKeyMinLength {
		return fmt.Errorf("gemini.api_key の形式が正しくありません (%s で始まる %d 文字以上のキーが必要です)", apiKeyPrefix, apiKeyMinLength)
	}
	return nil
}
