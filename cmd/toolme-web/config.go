// Package main provides the ToolMe web frontend.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/good-yellow-bee/toolme/internal/attachments"
	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/security"
)

// Config represents the web frontend configuration.
type Config struct {
	Environment string            `mapstructure:"environment"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	API         APIConfig         `mapstructure:"api"`
	Session     SessionConfig     `mapstructure:"session"`
	Redis       RedisConfig       `mapstructure:"redis"`
	CSRF        CSRFConfig        `mapstructure:"csrf"`
	Cookies     CookiesConfig     `mapstructure:"cookies"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	I18n        I18nConfig        `mapstructure:"i18n"`
	Pagination  PaginationConfig  `mapstructure:"pagination"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Verbose     bool              `mapstructure:"-"` // set via CLI flag
}

// HTTPConfig contains listener settings.
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLSCertFile     string        `mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `mapstructure:"tls_key_file"`
}

// APIConfig points at the marketplace backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	CAFile  string        `mapstructure:"ca_file"` // extra CA for a privately signed backend
}

// SessionConfig selects where browser sessions live.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CSRFConfig holds the form token key, 64 hex characters.
type CSRFConfig struct {
	Key string `mapstructure:"key"`
}

type CookiesConfig struct {
	Secure bool `mapstructure:"secure"`
}

// MetricsConfig contains the Prometheus listener. An empty address disables it.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// I18nConfig names an optional directory of translation overrides.
type I18nConfig struct {
	Dir string `mapstructure:"dir"`
}

type PaginationConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
}

// AttachmentsConfig enables file uploads on submissions.
type AttachmentsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// LoadConfig reads path (or toolme.yaml from the usual places when path is
// empty) with TOOLME_ environment overrides, e.g. TOOLME_API_BASE_URL.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("toolme")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TOOLME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	})
	return cfg
}

// setDefaults sets default values for missing config fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.tls_cert_file", "")
	v.SetDefault("http.tls_key_file", "")

	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.ca_file", "")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "168h") // 7 days

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("csrf.key", "")
	v.SetDefault("cookies.secure", false)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("i18n.dir", "")
	v.SetDefault("pagination.page_size", client.DefaultPageSize)
	v.SetDefault("ratelimit.auth_per_minute", 10)

	v.SetDefault("attachments.enabled", false)
	v.SetDefault("attachments.endpoint", "")
	v.SetDefault("attachments.access_key", "")
	v.SetDefault("attachments.secret_key", "")
	v.SetDefault("attachments.bucket", "toolme-submissions")
	v.SetDefault("attachments.region", "us-east-1")
	v.SetDefault("attachments.use_ssl", false)
	v.SetDefault("attachments.max_bytes", attachments.DefaultMaxBytes)
	v.SetDefault("attachments.url_expiry", "15m")
}

// IsProduction reports whether the frontend runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		return fmt.Errorf("http.tls_cert_file and http.tls_key_file must be set together")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if c.CSRF.Key != "" {
		if _, err := decodeKey(c.CSRF.Key); err != nil {
			return fmt.Errorf("csrf.key: %w", err)
		}
	} else if c.IsProduction() {
		return fmt.Errorf("csrf.key is required in production")
	}
	if c.IsProduction() && !c.Cookies.Secure {
		return fmt.Errorf("cookies.secure must be enabled in production")
	}

	if c.Pagination.PageSize <= 0 || c.Pagination.PageSize > 100 {
		return fmt.Errorf("pagination.page_size must be between 1 and 100")
	}
	if c.RateLimit.AuthPerMinute <= 0 {
		return fmt.Errorf("ratelimit.auth_per_minute must be positive")
	}

	if c.Attachments.Enabled {
		if c.Attachments.Endpoint == "" {
			return fmt.Errorf("attachments.endpoint is required when attachments are enabled")
		}
		if c.Attachments.Bucket == "" {
			return fmt.Errorf("attachments.bucket is required when attachments are enabled")
		}
		if c.Attachments.MaxBytes <= 0 {
			return fmt.Errorf("attachments.max_bytes must be positive")
		}
	}
	return nil
}

// CSRFKey returns the configured key, or a random one for this process when
// none is set. A random key invalidates open forms on restart.
func (c *Config) CSRFKey() ([]byte, bool, error) {
	if c.CSRF.Key != "" {
		key, err := decodeKey(c.CSRF.Key)
		return key, false, err
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate csrf key: %w", err)
	}
	return key, true, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// serverTLS returns the listener certificate settings.
func (c *Config) serverTLS() security.ServerTLSConfig {
	return security.ServerTLSConfig{CertFile: c.HTTP.TLSCertFile, KeyFile: c.HTTP.TLSKeyFile}
}

// attachmentsConfig converts the file settings for the attachments package.
func (c *Config) attachmentsConfig() attachments.Config {
	a := c.Attachments
	return attachments.Config{
		Endpoint:  a.Endpoint,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		Bucket:    a.Bucket,
		Region:    a.Region,
		UseSSL:    a.UseSSL,
		MaxBytes:  a.MaxBytes,
		URLExpiry: a.URLExpiry,
	}
}
