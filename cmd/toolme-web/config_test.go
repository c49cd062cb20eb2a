package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolme.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Errorf("http.address = %q", cfg.HTTP.Address)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("api.timeout = %v", cfg.API.Timeout)
	}
	if cfg.Session.TTL != 7*24*time.Hour {
		t.Errorf("session.ttl = %v", cfg.Session.TTL)
	}
	if cfg.Pagination.PageSize != 12 {
		t.Errorf("pagination.page_size = %d", cfg.Pagination.PageSize)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
environment: staging
http:
  address: ":9000"
api:
  base_url: https://api.toolme.example
  timeout: 5s
session:
  backend: redis
  ttl: 12h
redis:
  addr: redis:6379
csrf:
  key: `+testKey+`
`)
	t.Setenv("TOOLME_PAGINATION_PAGE_SIZE", "20")
	t.Setenv("TOOLME_COOKIES_SECURE", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTP.Address != ":9000" {
		t.Errorf("http.address = %q", cfg.HTTP.Address)
	}
	if cfg.API.BaseURL != "https://api.toolme.example" || cfg.API.Timeout != 5*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.TTL != 12*time.Hour {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis.addr = %q", cfg.Redis.Addr)
	}
	if cfg.Pagination.PageSize != 20 {
		t.Errorf("env override not applied: page_size = %d", cfg.Pagination.PageSize)
	}
	if !cfg.Cookies.Secure {
		t.Error("env override not applied: cookies.secure")
	}
	if cfg.RateLimit.AuthPerMinute != 10 {
		t.Errorf("default not kept: auth_per_minute = %d", cfg.RateLimit.AuthPerMinute)
	}

	key, generated, err := cfg.CSRFKey()
	if err != nil || generated || len(key) != 32 || key[31] != 0x1f {
		t.Errorf("CSRFKey() = %x, %v, %v", key, generated, err)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"unknown session backend", func(c *Config) { c.Session.Backend = "file" }, "session.backend"},
		{"redis without addr", func(c *Config) { c.Session.Backend = "redis"; c.Redis.Addr = "" }, "redis.addr"},
		{"short csrf key", func(c *Config) { c.CSRF.Key = "abcd" }, "csrf.key"},
		{"production without key", func(c *Config) { c.Environment = "production"; c.Cookies.Secure = true }, "csrf.key is required"},
		{"production without secure cookies", func(c *Config) { c.Environment = "production"; c.CSRF.Key = testKey }, "cookies.secure"},
		{"page size too large", func(c *Config) { c.Pagination.PageSize = 500 }, "pagination.page_size"},
		{"tls cert without key", func(c *Config) { c.HTTP.TLSCertFile = "server.crt" }, "tls_key_file"},
		{"attachments without endpoint", func(c *Config) { c.Attachments.Enabled = true }, "attachments.endpoint"},
		{"production ok", func(c *Config) {
			c.Environment = "production"
			c.CSRF.Key = testKey
			c.Cookies.Secure = true
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestCSRFKey_GeneratedWhenUnset(t *testing.T) {
	cfg := DefaultConfig()
	key, generated, err := cfg.CSRFKey()
	if err != nil {
		t.Fatalf("CSRFKey: %v", err)
	}
	if !generated || len(key) != 32 {
		t.Fatalf("got %d bytes, generated=%v", len(key), generated)
	}
}
