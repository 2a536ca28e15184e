package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Render   RenderConfig
	Share    ShareConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // "development", "production", "test"
	Debug       bool
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type RenderConfig struct {
	Scale     int    // device-pixel oversampling for exported PNGs
	Brand     string // brand mark drawn in the header and footer
	RateLimit int64  // renders per client per hour; 0 picks an environment default
}

type ShareConfig struct {
	BaseURL          string // public base URL for download and share links
	MessengerBaseURL string
	DraftTTL         time.Duration
	DownloadTTL      time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "vytal"),
			Password: getEnv("DB_PASSWORD", "vytal"),
			DBName:   getEnv("DB_NAME", "vytal_cards"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxConns:      getEnvInt("DB_MAX_CONNS", 10),
			MinConns:      getEnvInt("DB_MIN_CONNS", 2),
			MigrationsDir: getEnvNonEmpty("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		Render: RenderConfig{
			Scale:     getEnvInt("RENDER_SCALE", 3),
			Brand:     getEnvNonEmpty("RENDER_BRAND", "Vytal"),
			RateLimit: int64(getEnvInt("RENDER_RATE_LIMIT", 0)),
		},
		Share: ShareConfig{
			BaseURL:          strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
			MessengerBaseURL: getEnvNonEmpty("MESSENGER_BASE_URL", "https://wa.me/"),
			DraftTTL:         getEnvDuration("DRAFT_TTL", 2*time.Hour),
			DownloadTTL:      getEnvDuration("DOWNLOAD_TTL", 5*time.Minute),
		},
	}

	if cfg.Render.Scale < 1 || cfg.Render.Scale > 4 {
		return nil, fmt.Errorf("RENDER_SCALE must be between 1 and 4, got %d", cfg.Render.Scale)
	}

	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.Database.MinConns, cfg.Database.MaxConns)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
