package calendar

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"trustcal/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	entries   []model.CalendarEntry
	events    []model.Event
	trips     []model.Trip
	festivals []model.Festival
	err       error

	mu    sync.Mutex
	calls map[string]int
	from  time.Time
	to    time.Time
}

func (f *fakeSource) record(name string, from, to time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if !from.IsZero() {
		f.from, f.to = from, to
	}
}

func (f *fakeSource) EntriesBetween(_ context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	f.record("entries", from, to)
	return f.entries, f.err
}

func (f *fakeSource) PublishedEventsBetween(_ context.Context, from, to time.Time) ([]model.Event, error) {
	f.record("events", from, to)
	return f.events, nil
}

func (f *fakeSource) PublishedTripsOverlapping(_ context.Context, from, to time.Time) ([]model.Trip, error) {
	f.record("trips", from, to)
	return f.trips, nil
}

func (f *fakeSource) ActiveFestivals(context.Context) ([]model.Festival, error) {
	f.record("festivals", time.Time{}, time.Time{})
	return f.festivals, nil
}

type fakeSun struct {
	fail  map[string]bool
	block map[string]bool
	calls atomic.Int32
}

func (s *fakeSun) SunTimes(ctx context.Context, d time.Time) (model.SunTimes, error) {
	s.calls.Add(1)
	key := model.DateKey(d)
	if s.block[key] {
		<-ctx.Done()
		return model.SunTimes{}, ctx.Err()
	}
	if s.fail[key] {
		return model.SunTimes{}, errors.New("sun service unavailable")
	}
	return model.SunTimes{Sunrise: "06:30", Sunset: "18:30"}, nil
}

func TestVisibleDays(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     time.Month
		weekStart time.Weekday
		first     string
		last      string
		cells     int
	}{
		// March 2025 starts on a Saturday and has 31 days.
		{"march sunday start", 2025, time.March, time.Sunday, "2025-02-23", "2025-04-05", 42},
		{"march monday start", 2025, time.March, time.Monday, "2025-02-24", "2025-04-06", 42},
		// February 2026 starts on a Sunday: four exact rows, padded to five.
		{"february padded", 2026, time.February, time.Sunday, "2026-02-01", "2026-03-07", 35},
		{"september", 2025, time.September, time.Sunday, "2025-08-31", "2025-10-04", 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := VisibleDays(tt.year, tt.month, tt.weekStart)
			require.Len(t, days, tt.cells)
			assert.Equal(t, tt.first, model.DateKey(days[0]))
			assert.Equal(t, tt.last, model.DateKey(days[len(days)-1]))
			assert.Equal(t, tt.weekStart, days[0].Weekday())
		})
	}
}

func TestMonthLoaderMonth(t *testing.T) {
	src := &fakeSource{
		entries: []model.CalendarEntry{
			{Date: date(t, "2025-03-10"), EntryType: model.EntryHoliday, Title: "Founder's Day"},
			{Date: date(t, "2025-03-11"), EntryType: model.EntryBiyashna, IsManualOverride: true, SunriseTime: "06:49", SunsetTime: "18:45"},
		},
		trips: []model.Trip{pilgrimage(t)},
		festivals: []model.Festival{
			{Name: "Mahavir Jayanti", Date: date(t, "2023-03-20"), IsRecurring: true, IsActive: true},
		},
	}
	sun := &fakeSun{}
	loader := NewMonthLoader(src, fixedRule(model.StatusUpass), sun, LoaderConfig{WeekStart: time.Sunday})

	view, err := loader.Month(context.Background(), 2025, time.March)
	require.NoError(t, err)

	require.Len(t, view.Days, 42)
	assert.Equal(t, 2025, view.Year)
	assert.Equal(t, time.March, view.Month)

	for _, name := range []string{"entries", "events", "trips", "festivals"} {
		assert.Equal(t, 1, src.calls[name], "%s loaded once per month", name)
	}
	assert.Equal(t, "2025-02-23", model.DateKey(src.from))
	assert.Equal(t, "2025-04-05", model.DateKey(src.to))

	// 42 cells minus the holiday and the override need the default rule.
	assert.Equal(t, int32(40), sun.calls.Load())

	byKey := map[string]DayView{}
	for _, d := range view.Days {
		byKey[model.DateKey(d.Date)] = d
	}

	assert.False(t, byKey["2025-02-28"].InMonth)
	assert.True(t, byKey["2025-03-01"].InMonth)

	holiday := byKey["2025-03-10"].Activities
	assert.Equal(t, []model.ActivityType{model.ActivityHoliday, model.ActivityTrip}, activityTypes(holiday))

	override := byKey["2025-03-11"].Activities
	assert.Equal(t, model.ActivityBiyashna, override[0].Type)
	assert.False(t, override[0].IsDefault)
	assert.Equal(t, "06:49", override[0].SunTimes.Sunrise)

	plain := byKey["2025-03-09"].Activities
	assert.Equal(t, []model.ActivityType{model.ActivityUpass, model.ActivityTrip}, activityTypes(plain))
	assert.True(t, plain[0].IsDefault)
	require.NotNil(t, plain[0].SunTimes)
	assert.Equal(t, "06:30", plain[0].SunTimes.Sunrise)

	fest := byKey["2025-03-20"].Activities
	assert.Equal(t, []model.ActivityType{model.ActivityUpass, model.ActivityFestival}, activityTypes(fest))
}

func TestMonthLoaderSunTimesAreBestEffort(t *testing.T) {
	src := &fakeSource{}
	sun := &fakeSun{
		fail:  map[string]bool{"2025-03-05": true},
		block: map[string]bool{"2025-03-06": true},
	}
	loader := NewMonthLoader(src, fixedRule(model.StatusBiyashna), sun, LoaderConfig{
		SunTimeout:     20 * time.Millisecond,
		SunConcurrency: 4,
	})

	view, err := loader.Month(context.Background(), 2025, time.March)
	require.NoError(t, err)

	for _, d := range view.Days {
		require.NotEmpty(t, d.Activities)
		primary := d.Activities[0]
		assert.Equal(t, model.ActivityBiyashna, primary.Type)
		switch model.DateKey(d.Date) {
		case "2025-03-05", "2025-03-06":
			assert.Nil(t, primary.SunTimes, model.DateKey(d.Date))
		default:
			assert.NotNil(t, primary.SunTimes, model.DateKey(d.Date))
		}
	}
}

func TestMonthLoaderWithoutSunProvider(t *testing.T) {
	loader := NewMonthLoader(&fakeSource{}, fixedRule(model.StatusUpass), nil, LoaderConfig{})

	view, err := loader.Month(context.Background(), 2025, time.June)
	require.NoError(t, err)
	for _, d := range view.Days {
		assert.Nil(t, d.Activities[0].SunTimes)
	}
}

func TestMonthLoaderErrors(t *testing.T) {
	loader := NewMonthLoader(&fakeSource{}, fixedRule(model.StatusUpass), nil, LoaderConfig{})

	_, err := loader.Month(context.Background(), 2025, time.Month(13))
	assert.ErrorIs(t, err, ErrInvalidMonth)

	_, err = loader.Range(context.Background(), date(t, "2025-03-10"), date(t, "2025-03-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = loader.Range(context.Background(), date(t, "2024-01-01"), date(t, "2026-01-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	boom := errors.New("db down")
	failing := NewMonthLoader(&fakeSource{err: boom}, fixedRule(model.StatusUpass), nil, LoaderConfig{})
	_, err = failing.Month(context.Background(), 2025, time.March)
	assert.ErrorIs(t, err, boom)
}

func TestMonthLoaderDay(t *testing.T) {
	src := &fakeSource{
		entries: []model.CalendarEntry{{Date: date(t, "2025-03-10"), EntryType: model.EntryCustomEvent, Title: "Camp"}},
	}
	loader := NewMonthLoader(src, fixedRule(model.StatusUpass), &fakeSun{}, LoaderConfig{})

	day, err := loader.Day(context.Background(), time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", model.DateKey(day.Date))
	assert.Equal(t, []model.ActivityType{model.ActivityUpass, model.ActivityCustomEvent}, activityTypes(day.Activities))
	assert.NotNil(t, day.Activities[0].SunTimes)
}
