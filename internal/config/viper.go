package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides read through viper, e.g. CONTENT_CACHE_BACKEND
const EnvPrefix = "CONTENT"

// NewViper returns a viper instance seeded with the defaults, reading the
// optional config file and CONTENT_* environment overrides.
// An empty cfgFile looks for contentctl.yaml in the working directory.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("contentctl")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.max_lifetime", d.Database.MaxLifetime)
	v.SetDefault("database.migrations_dir", d.Database.MigrationsDir)

	v.SetDefault("content.root", d.Content.Root)
	v.SetDefault("content.concurrency", d.Content.Concurrency)
	v.SetDefault("content.max_document_size", d.Content.MaxDocumentSize)

	v.SetDefault("import.batch_size", d.Import.BatchSize)
	v.SetDefault("import.max_upload_size", d.Import.MaxUploadSize)
	v.SetDefault("import.upload_dir", d.Import.UploadDir)
	v.SetDefault("import.max_workers", d.Import.MaxWorkers)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.sqlite_path", d.Cache.SQLitePath)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.validated_topic", d.Events.ValidatedTopic)
	v.SetDefault("events.rejected_topic", d.Events.RejectedTopic)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
