package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the service configuration, read from the environment
type Config struct {
	Port               string
	LogLevel           string
	StoreBackend       string
	Redis              RedisConfig
	Mongo              MongoConfig
	JWTSecret          string
	LMS                LMSConfig
	CheckConcurrency   int
	CORSAllowedOrigins string
}

// RedisConfig configures the redis progress store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an unverified record can linger
	TTL time.Duration
}

// MongoConfig configures the mongo progress store
type MongoConfig struct {
	URI      string
	Database string
	TTL      time.Duration
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	lms := DefaultLMSConfig()

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_URI", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PROGRESS_TTL", 7*24*time.Hour)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "quizprogress")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("LMS_BASE_URL", lms.BaseURL)
	v.SetDefault("LMS_TIMEOUT", lms.Timeout)
	v.SetDefault("LMS_MAX_RETRIES", lms.MaxRetries)
	v.SetDefault("LMS_BACKOFF", lms.BaseBackoff)
	v.SetDefault("CHECK_CONCURRENCY", 8)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.AutomaticEnv()

	ttl := v.GetDuration("PROGRESS_TTL")
	cfg := &Config{
		Port:         v.GetString("PORT"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		Redis: RedisConfig{
			Addr:     strings.TrimPrefix(v.GetString("REDIS_URI"), "redis://"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      ttl,
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DB"),
			TTL:      ttl,
		},
		JWTSecret: v.GetString("JWT_SECRET"),
		LMS: LMSConfig{
			BaseURL:     v.GetString("LMS_BASE_URL"),
			Timeout:     v.GetDuration("LMS_TIMEOUT"),
			MaxRetries:  v.GetInt("LMS_MAX_RETRIES"),
			BaseBackoff: v.GetDuration("LMS_BACKOFF"),
		},
		CheckConcurrency:   v.GetInt("CHECK_CONCURRENCY"),
		CORSAllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.LMS.BaseURL == "" {
		return fmt.Errorf("config: LMS_BASE_URL is required")
	}
	if c.LMS.MaxRetries < 1 {
		c.LMS.MaxRetries = 1
	}
	if c.CheckConcurrency < 1 {
		c.CheckConcurrency = 1
	}
	return nil
}

// loadDotEnv loads ENV_FILE (default .env) when it exists.
// Variables already set in the environment win.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
