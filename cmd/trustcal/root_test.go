package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcal/internal/calendar"
	"trustcal/internal/model"
)

func TestPrintMonth(t *testing.T) {
	view := calendar.MonthView{
		Year:  2025,
		Month: time.March,
		Days: []calendar.DayView{
			{Date: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), Activities: []model.DayActivity{{Type: model.ActivityUpass}}},
			{
				Date:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
				InMonth: true,
				Activities: []model.DayActivity{
					{Type: model.ActivityUpass, IsDefault: true, SunTimes: &model.SunTimes{Sunrise: "06:52", Sunset: "18:43"}},
					{Type: model.ActivityTrip, Title: "Pilgrimage"},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printMonth(&buf, view))
	out := buf.String()

	assert.NotContains(t, out, "2025-02-28")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "2025-03-10")
	assert.Contains(t, lines[1], "Mon")
	assert.Contains(t, lines[1], "upass*")
	assert.Contains(t, lines[1], "06:52/18:43")
	assert.Contains(t, lines[1], "trip: Pilgrimage")
}

func TestMigrateAndMonthCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trustcal.yaml")
	t.Setenv("TRUSTCAL_DB_DRIVER", "sqlite")
	t.Setenv("TRUSTCAL_DB_DSN", filepath.Join(dir, "trustcal.db"))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := rootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
		require.NoError(t, cmd.ExecuteContext(context.Background()))
		return out.String()
	}

	assert.Contains(t, run("migrate"), "schema up to date")
	assert.FileExists(t, cfgPath)

	out := run("month", "--month", "2025-03")
	assert.Contains(t, out, "2025-03-01")
	assert.Contains(t, out, "2025-03-31")
	assert.Contains(t, out, "upass*")

	out = run("sync-festivals")
	assert.Contains(t, out, "synced 0 festivals from 0 feeds")
}
