// Package config is the configuration shared by the daemon and the cli.
package config

import (
	"coursewatch-backend/internal/cachestore"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/internal/watchlist"
	"coursewatch-backend/lib/configutil"
	"coursewatch-backend/lib/sqliteutil"
	"coursewatch-backend/lib/telemetry"
	"time"
)

type BannerConfig struct {
	BaseUrl string `json:"base_url"`
	// TimeoutSeconds bounds every request to the registration site.
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	UserAgent         string  `json:"user_agent"`
	// DumpDir receives every http exchange when set, it may start with <dev_state>.
	DumpDir string `json:"dump_dir"`
	// Concurrency bounds how many subjects or terms are scraped at once.
	Concurrency int `json:"concurrency"`
}

func (c BannerConfig) ClientOptions() banner.Options {
	return banner.Options{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
		UserAgent:         c.UserAgent,
	}
}

func (c BannerConfig) RegistrarOptions() registrar.Options {
	return registrar.Options{Concurrency: c.Concurrency}
}

type CacheConfig struct {
	TtlHours      int  `json:"ttl_hours"`
	MemoryEntries bool `json:"memory_entries"`
}

func (c CacheConfig) StoreOptions() cachestore.Options {
	return cachestore.Options{
		TTL:           time.Duration(c.TtlHours) * time.Hour,
		MemoryEntries: c.MemoryEntries,
	}
}

type HttpConfig struct {
	Port int `json:"port"`
	// StaticDir is served at / when set.
	StaticDir      string   `json:"static_dir"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type WatchConfig struct {
	// Schedule is a cron spec, "@every 5m" by default.
	Schedule          string `json:"schedule"`
	RowTimeoutSeconds int    `json:"row_timeout_seconds"`
}

func (c WatchConfig) PollerOptions() watchlist.Options {
	return watchlist.Options{RowTimeout: time.Duration(c.RowTimeoutSeconds) * time.Second}
}

type RefreshConfig struct {
	// Schedule is a cron spec, hourly by default.
	Schedule string `json:"schedule"`
	// Disabled turns the scheduled refresh off, the cli can still run one.
	Disabled bool `json:"disabled"`
}

type Config struct {
	Database  sqliteutil.Config    `json:"database"`
	Banner    BannerConfig         `json:"banner"`
	Cache     CacheConfig          `json:"cache"`
	Http      HttpConfig           `json:"http"`
	Watch     WatchConfig          `json:"watch"`
	Refresh   RefreshConfig        `json:"refresh"`
	Smtp      watchlist.SmtpConfig `json:"smtp"`
	Telemetry telemetry.Config     `json:"telemetry"`
}

func Default() Config {
	return Config{
		Database: sqliteutil.Config{File: "<dev_state>/coursewatch.db"},
		Banner: BannerConfig{
			BaseUrl:        banner.DefaultBaseUrl,
			TimeoutSeconds: 30,
			Concurrency:    4,
		},
		Cache: CacheConfig{
			TtlHours:      24,
			MemoryEntries: true,
		},
		Http: HttpConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
		},
		Watch: WatchConfig{
			Schedule:          "@every 5m",
			RowTimeoutSeconds: 120,
		},
		Refresh: RefreshConfig{
			Schedule: "0 * * * *",
		},
		Smtp: watchlist.SmtpConfig{Port: 587},
	}
}

// Read reads config.json5 (or the given path) and its local override, every
// field left unset falls back to Default.
func Read(path string) (Config, error) {
	if path == "" {
		path = "config.json5"
	}
	return configutil.ReadConfigWithDefaults(path, Default())
}
