package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Content collections configuration
	Content ContentConfig `mapstructure:"content"`

	// Import configuration
	Import ImportConfig `mapstructure:"import"`

	// Validation result cache
	Cache CacheConfig `mapstructure:"cache"`

	// Entry events for the rendering pipeline
	Events EventsConfig `mapstructure:"events"`

	// Logging configuration
	Log LogConfig `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Name          string        `mapstructure:"name"`
	SSLMode       string        `mapstructure:"sslmode"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	MaxLifetime   time.Duration `mapstructure:"max_lifetime"`
	MigrationsDir string        `mapstructure:"migrations_dir"`
}

// ContentConfig holds content checking settings
type ContentConfig struct {
	Root            string `mapstructure:"root"`
	Concurrency     int    `mapstructure:"concurrency"`
	MaxDocumentSize int64  `mapstructure:"max_document_size"` // in bytes
}

// ImportConfig holds import job settings
type ImportConfig struct {
	BatchSize     int    `mapstructure:"batch_size"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"` // in bytes
	UploadDir     string `mapstructure:"upload_dir"`
	MaxWorkers    int    `mapstructure:"max_workers"` // zero sizes the pool from NumCPU
}

// CacheConfig selects and configures the validation result cache
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// EventsConfig holds Kafka publisher settings
type EventsConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	ValidatedTopic string   `mapstructure:"validated_topic"`
	RejectedTopic  string   `mapstructure:"rejected_topic"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "pretty"
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    300 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          "5432",
			User:          "postgres",
			Password:      "postgres",
			Name:          "content_collections",
			SSLMode:       "disable",
			MaxOpenConns:  25,
			MaxIdleConns:  5,
			MaxLifetime:   5 * time.Minute,
			MigrationsDir: "migrations",
		},
		Content: ContentConfig{
			Root:            "./src/content",
			Concurrency:     8,
			MaxDocumentSize: 4 * 1024 * 1024, // 4MB
		},
		Import: ImportConfig{
			BatchSize:     500,
			MaxUploadSize: 100 * 1024 * 1024, // 100MB
			UploadDir:     "./data/uploads",
		},
		Cache: CacheConfig{
			Backend:    CacheNone,
			SQLitePath: "./.cache/content.db",
			RedisAddr:  "localhost:6379",
			TTL:        24 * time.Hour,
		},
		Events: EventsConfig{
			ValidatedTopic: "entry.validated",
			RejectedTopic:  "entry.rejected",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	d := Default()
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", d.Server.Port),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", d.Server.ReadTimeout),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", d.Server.WriteTimeout),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", d.Server.ShutdownTimeout),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", d.Database.Host),
			Port:          getEnv("DB_PORT", d.Database.Port),
			User:          getEnv("DB_USER", d.Database.User),
			Password:      getEnv("DB_PASSWORD", d.Database.Password),
			Name:          getEnv("DB_NAME", d.Database.Name),
			SSLMode:       getEnv("DB_SSLMODE", d.Database.SSLMode),
			MaxOpenConns:  getIntEnv("DB_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns:  getIntEnv("DB_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
			MaxLifetime:   getDurationEnv("DB_MAX_LIFETIME", d.Database.MaxLifetime),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", d.Database.MigrationsDir),
		},
		Content: ContentConfig{
			Root:            getEnv("CONTENT_ROOT", d.Content.Root),
			Concurrency:     getIntEnv("CHECK_CONCURRENCY", d.Content.Concurrency),
			MaxDocumentSize: getInt64Env("MAX_DOCUMENT_SIZE", d.Content.MaxDocumentSize),
		},
		Import: ImportConfig{
			BatchSize:     getIntEnv("IMPORT_BATCH_SIZE", d.Import.BatchSize),
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", d.Import.MaxUploadSize),
			UploadDir:     getEnv("UPLOAD_DIR", d.Import.UploadDir),
			MaxWorkers:    getIntEnv("IMPORT_MAX_WORKERS", d.Import.MaxWorkers),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", d.Cache.Backend)),
			SQLitePath:    getEnv("CACHE_SQLITE_PATH", d.Cache.SQLitePath),
			RedisAddr:     getEnv("REDIS_ADDR", d.Cache.RedisAddr),
			RedisPassword: getEnv("REDIS_PASSWORD", d.Cache.RedisPassword),
			RedisDB:       getIntEnv("REDIS_DB", d.Cache.RedisDB),
			TTL:           getDurationEnv("CACHE_TTL", d.Cache.TTL),
		},
		Events: EventsConfig{
			Enabled:        getBoolEnv("EVENTS_ENABLED", d.Events.Enabled),
			Brokers:        getListEnv("KAFKA_BROKERS", d.Events.Brokers),
			ValidatedTopic: getEnv("KAFKA_TOPIC_VALIDATED", d.Events.ValidatedTopic),
			RejectedTopic:  getEnv("KAFKA_TOPIC_REJECTED", d.Events.RejectedTopic),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", d.Log.Level),
			Format: getEnv("LOG_FORMAT", d.Log.Format),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Content.Concurrency < 1 {
		return fmt.Errorf("content concurrency must be at least 1, got %d", c.Content.Concurrency)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheSQLite, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend %q, must be one of: none, sqlite, redis", c.Cache.Backend)
	}
	if c.Events.Enabled && (c.Events.ValidatedTopic == "" || c.Events.RejectedTopic == "") {
		return fmt.Errorf("event topics are required when events are enabled")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
