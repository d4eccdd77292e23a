package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"trustcal/internal/admin"
	"trustcal/internal/calendar"
	"trustcal/internal/config"
	"trustcal/internal/ics"
	appLog "trustcal/internal/log"
	"trustcal/internal/metrics"
	"trustcal/internal/notify"
	"trustcal/internal/store"
	"trustcal/internal/suntimes"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	loader   *calendar.MonthLoader
	admin    *admin.Service
	syncer   *ics.Syncer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	rule, err := calendar.RuleFromConfig(cfg.DefaultRule)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("default rule: %w", err)
	}

	loc := resolveLocationOrLocal(cfg.Location.Timezone)
	sun := suntimes.NewCached(
		suntimes.NewAstralProvider(cfg.Location.Latitude, cfg.Location.Longitude, loc),
		time.Duration(cfg.SunTimes.CacheHours)*time.Hour,
		0,
	)
	sunTimeout := time.Duration(cfg.SunTimes.TimeoutMs) * time.Millisecond

	notifier, err := notify.New(cfg.Notifications.URLs, time.Duration(cfg.Notifications.TimeoutMs)*time.Millisecond, m)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    st,
		registry: reg,
		metrics:  m,
		loader: calendar.NewMonthLoader(st, rule, sun, calendar.LoaderConfig{
			WeekStart:      calendar.WeekStartFromConfig(cfg.WeekStart),
			SunTimeout:     sunTimeout,
			SunConcurrency: cfg.SunTimes.Concurrency,
			Metrics:        m,
		}),
		admin: admin.NewService(st, admin.Options{
			SunTimes:   sun,
			SunTimeout: sunTimeout,
			Notifier:   notifier,
			Metrics:    m,
		}),
		syncer: ics.NewSyncer(
			ics.NewFetcher(cfg.CacheDir, nil),
			st,
			ics.FeedsFromConfig(cfg.FestivalFeeds),
			m,
		),
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"db_driver", cfg.Database.Driver,
		"timezone", loc.String(),
		"default_rule", cfg.DefaultRule.Kind,
		"week_start", cfg.WeekStart,
		"festival_feeds", len(cfg.FestivalFeeds),
		"notify_services", len(cfg.Notifications.URLs),
		"basic_auth", cfg.BasicAuth != nil,
	)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
