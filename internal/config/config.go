// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	Port        int    `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"fernando-format"`

	// Redis backs the conversation state store.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// DBURL points at the role config store. Empty disables the external
	// store and the registry serves its built-in defaults.
	DBURL string `env:"DB_URL"`

	// OpenAI-compatible chat completions endpoint.
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ChatModel     string        `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	AITimeout     time.Duration `env:"AI_TIMEOUT" envDefault:"120s"`

	// AI backoff configuration (transient failures only).
	AIBackoffMaxElapsedTime  time.Duration `env:"AI_BACKOFF_MAX_ELAPSED_TIME" envDefault:"60s"`
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"2s"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"20s"`
	AIBackoffMultiplier      float64       `env:"AI_BACKOFF_MULTIPLIER" envDefault:"1.5"`

	// TikaURL specifies the base URL for the Apache Tika server used for
	// PDF/DOC/DOCX text extraction.
	TikaURL     string        `env:"TIKA_URL" envDefault:"http://tika:9998"`
	TikaTimeout time.Duration `env:"TIKA_TIMEOUT" envDefault:"30s"`

	// Object storage for generated documents. Empty endpoint disables
	// document delivery (reported to users as feature unavailable).
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"true"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"cv-outputs"`

	// DownloadLinkTTL bounds generated download URLs.
	DownloadLinkTTL time.Duration `env:"DOWNLOAD_LINK_TTL" envDefault:"168h"`

	// LogoPath points at the letterhead PNG placed in the document header.
	// Layout degrades gracefully when absent.
	LogoPath string `env:"LOGO_PATH"`

	// Outbound reply authentication, passed through to the chat platform.
	ReplyBearerToken string `env:"REPLY_BEARER_TOKEN"`

	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL" envDefault:"5m"`

	MaxAttachmentMB       int64         `env:"MAX_ATTACHMENT_MB" envDefault:"10"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	TurnTimeout           time.Duration `env:"TURN_TIMEOUT" envDefault:"180s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"200s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// StorageEnabled reports whether generated documents can be delivered.
func (c Config) StorageEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

// RoleStoreEnabled reports whether the external role config store is wired.
func (c Config) RoleStoreEnabled() bool { return c.DBURL != "" }

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
