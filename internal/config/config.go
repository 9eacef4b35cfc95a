package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

type ServerConfig struct {
	Address   string `mapstructure:"address"`
	DevTokens bool   `mapstructure:"dev_tokens"` // exposes POST /api/v1/auth/token
	GinMode   string `mapstructure:"gin_mode"`
}

// DatabaseConfig points at the remote store. Driver is "mongo" or "memory";
// an empty URI with the mongo driver leaves the core in cache-only mode.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// S3Config locates the bucket that receives backup archives. Backups are
// disabled when BucketName is empty.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines how actor tokens are verified.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// CacheConfig locates the offline cache.
type CacheConfig struct {
	Path     string        `mapstructure:"path"`
	Slot     string        `mapstructure:"slot"`
	Debounce time.Duration `mapstructure:"debounce"` // quiescence window before a snapshot flush
}

// SyncConfig bounds remote calls.
type SyncConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RemoteConfigured reports whether enough is configured to talk to the
// remote store at all.
func (c Config) RemoteConfigured() bool {
	switch c.Database.Driver {
	case "memory":
		return true
	default:
		return c.Database.URI != ""
	}
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, cache.debounce -> CACHE_DEBOUNCE
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("server.dev_tokens", false)
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "")
	v.SetDefault("database.name", "flexcoach")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "12h")
	v.SetDefault("cache.path", "flexcoach-cache.db")
	v.SetDefault("cache.slot", "flexProMaxData_v15")
	v.SetDefault("cache.debounce", "1s")
	v.SetDefault("sync.timeout", "10s")

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// Running on defaults and environment only.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, nil
}
