package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	BaseURL               string        `mapstructure:"base_url"`
	DefaultPrefix         string        `mapstructure:"default_prefix"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	WithCredentials       bool          `mapstructure:"with_credentials"`

	SuccessCode      string `mapstructure:"success_code"`
	UnauthorizedCode string `mapstructure:"unauthorized_code"`
	ForbiddenCode    string `mapstructure:"forbidden_code"`

	NotifyWindowMs   int64         `mapstructure:"notify_window_ms"`
	NotifyWindow     time.Duration `mapstructure:"-"`
	NotifyOnCanceled bool          `mapstructure:"notify_on_canceled"`
	ToastersFile     string        `mapstructure:"toasters_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
	ValkeyAddr             string        `mapstructure:"valkey_addr"`
	ValkeyUsername         string        `mapstructure:"valkey_username"`
	ValkeyPassword         string        `mapstructure:"valkey_password"`
	ValkeyDB               int           `mapstructure:"valkey_db"`

	PollIntervalSeconds int64         `mapstructure:"poll_interval_seconds"`
	PollInterval        time.Duration `mapstructure:"-"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "callgate")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "http://localhost:8080/")
	v.SetDefault("default_prefix", "api")
	v.SetDefault("request_timeout_seconds", 15)
	v.SetDefault("with_credentials", true)
	v.SetDefault("success_code", "0")
	v.SetDefault("unauthorized_code", "401")
	v.SetDefault("forbidden_code", "403")
	v.SetDefault("notify_window_ms", 1000)
	v.SetDefault("notify_on_canceled", false)
	v.SetDefault("toasters_file", "")
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/toasts.db")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64(time.Hour/time.Second))
	v.SetDefault("valkey_addr", "")
	v.SetDefault("valkey_username", "")
	v.SetDefault("valkey_password", "")
	v.SetDefault("valkey_db", 0)
	v.SetDefault("poll_interval_seconds", 30)
	v.SetDefault("metrics_addr", "")
}

// normalize validates raw values and derives the duration fields.
func (c *Config) normalize() error {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q (must be an absolute URL)", c.BaseURL)
	}
	c.DefaultPrefix = strings.Trim(strings.TrimSpace(c.DefaultPrefix), "/")

	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second

	if c.NotifyWindowMs <= 0 {
		return fmt.Errorf("invalid notify_window_ms (must be positive milliseconds)")
	}
	c.NotifyWindow = time.Duration(c.NotifyWindowMs) * time.Millisecond

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval_seconds (must be positive seconds)")
	}
	c.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second
	return nil
}

// Redacted returns a copy safe to log: secrets are masked and credentials
// embedded in base_url are hidden.
func (c *Config) Redacted() Config {
	out := *c
	if out.ValkeyPassword != "" {
		out.ValkeyPassword = "xxxxx"
	}
	if u, err := url.Parse(out.BaseURL); err == nil && u.User != nil {
		out.BaseURL = u.Redacted()
	}
	return out
}
