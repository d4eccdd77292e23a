// Package metrics holds the Prometheus collectors for day resolution,
// sun-time enrichment, festival feed sync and holiday notifications.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	daysResolvedTotal   *prometheus.CounterVec
	sunTimesTotal       *prometheus.CounterVec
	monthLoadDuration   prometheus.Histogram
	feedSyncTotal       *prometheus.CounterVec
	festivalsSynced     *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	adminOperationTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		daysResolvedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustcal_days_resolved_total",
				Help: "Days resolved by the activity merger, by primary activity type and origin",
			},
			[]string{"primary", "origin"}, // origin: default, stored
		),
		sunTimesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustcal_sun_times_total",
				Help: "Sun-time lookups, by outcome",
			},
			[]string{"status"}, // status: success, error
		),
		monthLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trustcal_month_load_duration_seconds",
				Help:    "Time taken to load and resolve a month view",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
		),
		feedSyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustcal_feed_sync_total",
				Help: "Festival feed sync attempts, by feed and outcome",
			},
			[]string{"feed", "status"},
		),
		festivalsSynced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustcal_festivals_synced_total",
				Help: "Festivals upserted from feeds",
			},
			[]string{"feed"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustcal_notifications_total",
				Help: "Holiday notifications, by outcome",
			},
			[]string{"status"},
		),
		adminOperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustcal_admin_operations_total",
				Help: "Admin calendar writes, by operation and outcome",
			},
			[]string{"operation", "status"},
		),
	}

	collectors := []prometheus.Collector{
		m.daysResolvedTotal,
		m.sunTimesTotal,
		m.monthLoadDuration,
		m.feedSyncTotal,
		m.festivalsSynced,
		m.notificationsTotal,
		m.adminOperationTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) DayResolved(primary string, isDefault bool) {
	if m == nil {
		return
	}
	origin := "stored"
	if isDefault {
		origin = "default"
	}
	m.daysResolvedTotal.WithLabelValues(primary, origin).Inc()
}

func (m *Metrics) SunTimes(err error) {
	if m == nil {
		return
	}
	m.sunTimesTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (m *Metrics) MonthLoaded(seconds float64) {
	if m == nil {
		return
	}
	m.monthLoadDuration.Observe(seconds)
}

func (m *Metrics) FeedSynced(feed string, festivals int, err error) {
	if m == nil {
		return
	}
	m.feedSyncTotal.WithLabelValues(feed, statusLabel(err)).Inc()
	if festivals > 0 {
		m.festivalsSynced.WithLabelValues(feed).Add(float64(festivals))
	}
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (m *Metrics) AdminOperation(op string, err error) {
	if m == nil {
		return
	}
	m.adminOperationTotal.WithLabelValues(op, statusLabel(err)).Inc()
}
