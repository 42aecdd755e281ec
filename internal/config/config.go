package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Relay    RelayConfig
	Platform PlatformConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Sync     SyncConfig
	Webhook  WebhookConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// RelayConfig points the relay at its hosted REST upstream. When a Postgres
// DSN is configured the local backend takes precedence and these are unused.
type RelayConfig struct {
	UpstreamURL    string
	UpstreamKey    string
	SelfURL        string
	TimeoutSeconds int
}

// PlatformConfig holds messaging-platform API settings.
type PlatformConfig struct {
	GraphBaseURL   string
	TimeoutSeconds int
}

// PostgresConfig holds DB connection values for self-hosted mode.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	MasterAdminEmail      string
	MasterAdminPassword   string
	MasterAdminName       string
	SeedAgentName         string
	SeedAgentEmail        string
	SeedAgentPassword     string
}

// SyncConfig tunes the polling engine.
type SyncConfig struct {
	ListIntervalSeconds  int
	ThreadIntervalMillis int
	TurboLimit           int
	DeepLimit            int
}

// WebhookConfig carries the platform subscription shared secret.
type WebhookConfig struct {
	VerifyToken string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "inbox-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Relay: RelayConfig{
			UpstreamURL:    os.Getenv("RELAY_UPSTREAM_URL"),
			UpstreamKey:    os.Getenv("RELAY_UPSTREAM_KEY"),
			SelfURL:        os.Getenv("RELAY_SELF_URL"),
			TimeoutSeconds: getEnvAsInt("RELAY_TIMEOUT_SECONDS", 10),
		},
		Platform: PlatformConfig{
			GraphBaseURL:   getEnv("PLATFORM_GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
			TimeoutSeconds: getEnvAsInt("PLATFORM_TIMEOUT_SECONDS", 10),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 720),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MasterAdminEmail:      getEnv("MASTER_ADMIN_EMAIL", "admin@messengerflow.app"),
			MasterAdminPassword:   os.Getenv("MASTER_ADMIN_PASSWORD"),
			MasterAdminName:       getEnv("MASTER_ADMIN_NAME", "Portal Admin"),
			SeedAgentName:         getEnv("SEED_AGENT_NAME", "Support Agent"),
			SeedAgentEmail:        os.Getenv("SEED_AGENT_EMAIL"),
			SeedAgentPassword:     os.Getenv("SEED_AGENT_PASSWORD"),
		},
		Sync: SyncConfig{
			ListIntervalSeconds:  getEnvAsInt("SYNC_LIST_INTERVAL_SECONDS", 5),
			ThreadIntervalMillis: getEnvAsInt("SYNC_THREAD_INTERVAL_MILLIS", 2500),
			TurboLimit:           getEnvAsInt("SYNC_TURBO_LIMIT", 5),
			DeepLimit:            getEnvAsInt("SYNC_DEEP_LIMIT", 50),
		},
		Webhook: WebhookConfig{
			VerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the relay client deadline.
func (r RelayConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Timeout returns the platform client deadline.
func (p PlatformConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ListInterval returns the list-level poll period.
func (s SyncConfig) ListInterval() time.Duration {
	if s.ListIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ListIntervalSeconds) * time.Second
}

// ThreadInterval returns the thread-level poll period.
func (s SyncConfig) ThreadInterval() time.Duration {
	if s.ThreadIntervalMillis <= 0 {
		return 2500 * time.Millisecond
	}
	return time.Duration(s.ThreadIntervalMillis) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
