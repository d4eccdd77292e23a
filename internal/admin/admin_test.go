package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcal/internal/config"
	"trustcal/internal/metrics"
	"trustcal/internal/model"
	"trustcal/internal/store"
)

type stubSun struct {
	err error
}

func (s stubSun) SunTimes(context.Context, time.Time) (model.SunTimes, error) {
	if s.err != nil {
		return model.SunTimes{}, s.err
	}
	return model.SunTimes{Sunrise: "06:52", Sunset: "18:43"}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
	bodies []string
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	r.bodies = append(r.bodies, message)
	return r.err
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestSetOverrideCachesSunTimes(t *testing.T) {
	st := newStore(t)
	svc := NewService(st, Options{SunTimes: stubSun{}})
	admin := uuid.New()

	e, err := svc.SetOverride(context.Background(), day(t, "2025-03-10"), model.StatusBiyashna, admin)
	require.NoError(t, err)

	assert.Equal(t, model.EntryBiyashna, e.EntryType)
	assert.True(t, e.IsManualOverride)
	assert.Equal(t, "06:52", e.SunriseTime)
	assert.Equal(t, "18:43", e.SunsetTime)
	assert.Equal(t, admin, e.CreatedBy)
}

func TestSetOverrideWithoutSunTimes(t *testing.T) {
	st := newStore(t)
	svc := NewService(st, Options{SunTimes: stubSun{err: errors.New("offline")}})

	e, err := svc.SetOverride(context.Background(), day(t, "2025-03-10"), model.StatusUpass, uuid.Nil)
	require.NoError(t, err, "sun times are best-effort")
	assert.Empty(t, e.SunriseTime)
	assert.True(t, e.IsManualOverride)
}

func TestSetOverrideRejectsBadInput(t *testing.T) {
	svc := NewService(newStore(t), Options{})

	_, err := svc.SetOverride(context.Background(), day(t, "2025-03-10"), model.Status("holiday"), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "status must be one of")

	_, err = svc.SetOverride(context.Background(), time.Time{}, model.StatusUpass, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkHolidayReplacesOverrideAndNotifies(t *testing.T) {
	st := newStore(t)
	n := &recordingNotifier{}
	svc := NewService(st, Options{Notifier: n})
	ctx := context.Background()

	_, err := svc.SetOverride(ctx, day(t, "2025-03-10"), model.StatusUpass, uuid.Nil)
	require.NoError(t, err)

	e, err := svc.MarkHoliday(ctx, day(t, "2025-03-10"), " Founder's Day ", "", "Anniversary", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, model.EntryHoliday, e.EntryType)
	assert.Equal(t, "Founder's Day", e.Title)

	stored, err := st.EntryByDate(ctx, day(t, "2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, model.EntryHoliday, stored.EntryType)

	require.Len(t, n.titles, 1)
	assert.Equal(t, "Holiday: Founder's Day", n.titles[0])
	assert.Equal(t, "2025-03-10: Founder's Day\nReason: Anniversary", n.bodies[0])
}

func TestMarkHolidayIgnoresNotificationFailure(t *testing.T) {
	svc := NewService(newStore(t), Options{Notifier: &recordingNotifier{err: errors.New("smtp down")}})

	_, err := svc.MarkHoliday(context.Background(), day(t, "2025-03-10"), "Closed", "", "", uuid.Nil)
	assert.NoError(t, err)
}

func TestMarkHolidayRequiresTitle(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewService(newStore(t), Options{Notifier: n})

	_, err := svc.MarkHoliday(context.Background(), day(t, "2025-03-10"), "   ", "", "", uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, n.titles)
}

func TestAddCustomEvent(t *testing.T) {
	st := newStore(t)
	svc := NewService(st, Options{})

	e, err := svc.AddCustomEvent(context.Background(), day(t, "2025-03-12"), "Youth camp", "Hall B", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, model.EntryCustomEvent, e.EntryType)
	assert.False(t, e.IsManualOverride)

	_, err = svc.AddCustomEvent(context.Background(), day(t, "2025-03-12"), "", "", uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFestivalOperations(t *testing.T) {
	st := newStore(t)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	svc := NewService(st, Options{Metrics: m})
	ctx := context.Background()

	f, err := svc.AddFestival(ctx, "Mahavir Jayanti", day(t, "2025-04-10"), "", true)
	require.NoError(t, err)
	assert.True(t, f.IsActive)
	assert.True(t, f.IsRecurring)

	f, err = svc.SetFestivalActive(ctx, f.ID, false)
	require.NoError(t, err)
	assert.False(t, f.IsActive)

	_, err = svc.SetFestivalActive(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.SetFestivalActive(ctx, uuid.Nil, true)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddFestival(ctx, "", day(t, "2025-04-10"), "", false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 1.0, adminOps(t, reg, "add_festival", "success"))
	assert.Equal(t, 1.0, adminOps(t, reg, "add_festival", "error"))
	assert.Equal(t, 1.0, adminOps(t, reg, "set_festival_active", "success"))
	assert.Equal(t, 2.0, adminOps(t, reg, "set_festival_active", "error"))
}

func adminOps(t *testing.T, reg *prometheus.Registry, op, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "trustcal_admin_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == op && labels["status"] == status {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
