package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "alternating", cfg.DefaultRule.Kind)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: ":9090"
week_start: Tuesday
default_rule:
  kind: weekday
  upass_weekdays: [monday, thursday]
festival_feeds:
  - id: panchang
    url: https://example.org/panchang.ics
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "sunday", cfg.WeekStart, "unknown week start falls back")
	assert.Equal(t, "weekday", cfg.DefaultRule.Kind)
	assert.Equal(t, []string{"monday", "thursday"}, cfg.DefaultRule.UpassWeekdays)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8, cfg.SunTimes.Concurrency)
	require.Len(t, cfg.FestivalFeeds, 1)
	assert.Equal(t, "panchang", cfg.FestivalFeeds[0].ID)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TRUSTCAL_DB_DRIVER", "postgres")
	t.Setenv("TRUSTCAL_DB_DSN", "postgres://u:p@db/trust")
	t.Setenv("TRUSTCAL_BASIC_AUTH_USER", "admin")
	t.Setenv("TRUSTCAL_BASIC_AUTH_PASSWORD", "secret")
	t.Setenv("TRUSTCAL_NOTIFY_URLS", "generic://hooks.example.org/a, ,logger://")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@db/trust", cfg.Database.DSN)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.Equal(t, []string{"generic://hooks.example.org/a", "logger://"}, cfg.Notifications.URLs)
}

func TestSaveRoundTripKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Location.Latitude = 19.076
	cfg.FestivalFeeds = append(cfg.FestivalFeeds, FeedConfig{ID: "f1", URL: "https://example.org/f.ics"})

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 19.076, loaded.Location.Latitude, 1e-9)
	assert.Len(t, loaded.FestivalFeeds, 1)
}

func TestSaveRejectsEmptyInputs(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}
