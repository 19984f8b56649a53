// Package config loads nestmate client configuration from an optional .env
// file, an optional TOML config file and NESTMATE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Variants of the client. Both share every component.
const (
	VariantNest = "nest"
	VariantToss = "toss"
)

var defaultAPIURLs = map[string]string{
	VariantNest: "https://api.nestmate.app",
	VariantToss: "https://nest.toss.im/api",
}

// Config holds all client configuration values.
type Config struct {
	Variant string
	API     APIConfig
	Data    DataConfig
	Sync    SyncConfig
	Feed    FeedConfig
	Log     LogConfig
	Backup  BackupConfig
}

type APIConfig struct {
	URL     string
	Timeout time.Duration
}

// DataConfig locates the on-device SQLite cache.
type DataConfig struct {
	Path string
}

// SyncConfig controls the periodic full sync. Zero disables it.
type SyncConfig struct {
	Interval time.Duration
}

type FeedConfig struct {
	Enabled        bool
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type LogConfig struct {
	Level  string
	Format string
}

type BackupConfig struct {
	S3 S3Config
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Load reads configuration and validates it. A .env file in the working
// directory is loaded first when present; existing env vars win.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"variant":    "variant",
	"api-url":    "api.url",
	"data":       "data.path",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// RegisterFlags adds the global flags understood by LoadWithFlags.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a TOML config file")
	fs.String("variant", VariantNest, "client variant (nest or toss)")
	fs.String("api-url", "", "backend base URL")
	fs.String("data", "", "path to the local cache database")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "text", "log format (text or json)")
}

// LoadWithFlags is Load with flags from RegisterFlags taking precedence over
// the environment and config file. Only flags set explicitly override.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	configPath := os.Getenv("NESTMATE_CONFIG")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			configPath = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigType("toml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(filepath.Join(userConfigDir(), "nestmate"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("NESTMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("variant", VariantNest)
	v.SetDefault("api.url", "")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("data.path", filepath.Join(userDataDir(), "nestmate", "nestmate.db"))
	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.reconnect_delay", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("backup.s3.endpoint", "")
	v.SetDefault("backup.s3.bucket", "")
	v.SetDefault("backup.s3.region", "us-east-1")
	v.SetDefault("backup.s3.access_key", "")
	v.SetDefault("backup.s3.secret_key", "")
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Variant = strings.ToLower(strings.TrimSpace(cfg.Variant))
	if _, ok := defaultAPIURLs[cfg.Variant]; !ok {
		return nil, fmt.Errorf("invalid variant %q: must be %s or %s", cfg.Variant, VariantNest, VariantToss)
	}
	if cfg.API.URL == "" {
		cfg.API.URL = defaultAPIURLs[cfg.Variant]
	}
	cfg.API.URL = strings.TrimRight(cfg.API.URL, "/")
	if cfg.API.Timeout <= 0 {
		return nil, fmt.Errorf("api.timeout must be positive, got %v", cfg.API.Timeout)
	}
	if cfg.Sync.Interval < 0 {
		return nil, fmt.Errorf("sync.interval must not be negative, got %v", cfg.Sync.Interval)
	}
	if cfg.Data.Path == "" {
		return nil, fmt.Errorf("data.path is required")
	}
	return &cfg, nil
}

// BackupEnabled reports whether S3 credentials are configured.
func (c *Config) BackupEnabled() bool {
	s := c.Backup.S3
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func userDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
