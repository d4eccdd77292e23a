package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Secrets may also come from the environment (or a .env file).

// LocationConfig is the fixed site used for sunrise/sunset.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	// Timezone is the IANA zone sun times are reported in.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// DefaultRuleConfig selects the policy that assigns upass/biyashna to days
// without a stored override. Supported kinds:
//   - "alternating": Anchor has AnchorStatus, then the status flips daily
//   - "weekday":     UpassWeekdays are upass, every other day biyashna
//   - "rrule":       days matching RRule (from Anchor) are upass
type DefaultRuleConfig struct {
	Kind          string   `yaml:"kind" json:"kind"`
	Anchor        string   `yaml:"anchor" json:"anchor"`
	AnchorStatus  string   `yaml:"anchor_status" json:"anchor_status"`
	UpassWeekdays []string `yaml:"upass_weekdays,omitempty" json:"upass_weekdays,omitempty"`
	RRule         string   `yaml:"rrule,omitempty" json:"rrule,omitempty"`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	// Driver is one of "postgres", "mysql", "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"-"`

	MaxOpenConns       int `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns       int `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetimeMin int `yaml:"conn_max_lifetime_minutes" json:"conn_max_lifetime_minutes"`
	SlowQueryMs        int `yaml:"slow_query_ms" json:"slow_query_ms"`
}

// SunTimesConfig bounds the best-effort sun-time enrichment.
type SunTimesConfig struct {
	TimeoutMs   int `yaml:"timeout_ms" json:"timeout_ms"`
	Concurrency int `yaml:"concurrency" json:"concurrency"`
	CacheHours  int `yaml:"cache_hours" json:"cache_hours"`
}

// FeedConfig describes a single ICS festival feed.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging and the disk cache.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// NotificationsConfig lists shoutrrr service URLs for holiday notices.
type NotificationsConfig struct {
	URLs      []string `yaml:"urls" json:"-"`
	TimeoutMs int      `yaml:"timeout_ms" json:"timeout_ms"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the admin API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// WeekStart controls which weekday opens a month grid row:
	// "monday" or "sunday" (default).
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Location    LocationConfig    `yaml:"location" json:"location"`
	DefaultRule DefaultRuleConfig `yaml:"default_rule" json:"default_rule"`
	Database    DatabaseConfig    `yaml:"database" json:"database"`
	SunTimes    SunTimesConfig    `yaml:"sun_times" json:"sun_times"`

	// FestivalFeeds are ICS calendars imported as festivals.
	FestivalFeeds []FeedConfig `yaml:"festival_feeds" json:"festival_feeds"`
	// SyncCron is a cron-style schedule for the festival feed import.
	SyncCron string `yaml:"sync_cron" json:"sync_cron"`
	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		WeekStart: "sunday",
		LogLevel:  "info",
		Location: LocationConfig{
			// Ahmedabad.
			Latitude:  23.0225,
			Longitude: 72.5714,
			Timezone:  "Asia/Kolkata",
		},
		DefaultRule: DefaultRuleConfig{
			Kind:         "alternating",
			Anchor:       "2025-01-01",
			AnchorStatus: "upass",
		},
		Database: DatabaseConfig{
			Driver:             "sqlite",
			DSN:                "trustcal.db",
			MaxOpenConns:       20,
			MaxIdleConns:       10,
			ConnMaxLifetimeMin: 10,
			SlowQueryMs:        200,
		},
		SunTimes: SunTimesConfig{
			TimeoutMs:   2000,
			Concurrency: 8,
			CacheHours:  24,
		},
		FestivalFeeds: []FeedConfig{},
		SyncCron:      "0 3 * * *",
		CacheDir:      "./var/ics-cache",
		Notifications: NotificationsConfig{
			URLs:      []string{},
			TimeoutMs: 5000,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Location.Timezone == "" {
		c.Location.Timezone = def.Location.Timezone
	}
	if c.DefaultRule.Kind == "" {
		c.DefaultRule = def.DefaultRule
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = def.Database.DSN
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = def.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = def.Database.MaxIdleConns
	}
	if c.Database.ConnMaxLifetimeMin <= 0 {
		c.Database.ConnMaxLifetimeMin = def.Database.ConnMaxLifetimeMin
	}
	if c.Database.SlowQueryMs <= 0 {
		c.Database.SlowQueryMs = def.Database.SlowQueryMs
	}
	if c.SunTimes.TimeoutMs <= 0 {
		c.SunTimes.TimeoutMs = def.SunTimes.TimeoutMs
	}
	if c.SunTimes.Concurrency <= 0 {
		c.SunTimes.Concurrency = def.SunTimes.Concurrency
	}
	if c.SunTimes.CacheHours <= 0 {
		c.SunTimes.CacheHours = def.SunTimes.CacheHours
	}
	if c.FestivalFeeds == nil {
		c.FestivalFeeds = []FeedConfig{}
	}
	if c.SyncCron == "" {
		c.SyncCron = def.SyncCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.Notifications.URLs == nil {
		c.Notifications.URLs = []string{}
	}
	if c.Notifications.TimeoutMs <= 0 {
		c.Notifications.TimeoutMs = def.Notifications.TimeoutMs
	}
}

// ApplyEnv overlays secrets from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
//
//	TRUSTCAL_DB_DRIVER, TRUSTCAL_DB_DSN
//	TRUSTCAL_BASIC_AUTH_USER, TRUSTCAL_BASIC_AUTH_PASSWORD
//	TRUSTCAL_NOTIFY_URLS (comma separated)
func (c *Config) ApplyEnv() {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	if v := os.Getenv("TRUSTCAL_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("TRUSTCAL_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	user := os.Getenv("TRUSTCAL_BASIC_AUTH_USER")
	pass := os.Getenv("TRUSTCAL_BASIC_AUTH_PASSWORD")
	if user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
	if v := os.Getenv("TRUSTCAL_NOTIFY_URLS"); v != "" {
		urls := make([]string, 0)
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		c.Notifications.URLs = urls
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied last in both cases and never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".trustcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
