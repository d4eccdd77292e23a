package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "trustcal/internal/log"
	"trustcal/internal/metrics"
	"trustcal/internal/model"
)

const (
	defaultSunTimeout     = 2 * time.Second
	defaultSunConcurrency = 8

	// maxRangeDays caps Range requests (ICS export, API) to about a year.
	maxRangeDays = 400
)

var (
	ErrInvalidMonth = errors.New("calendar: invalid month")
	ErrInvalidRange = errors.New("calendar: invalid date range")
)

// Source supplies the four read-only collections a view is built from.
type Source interface {
	EntriesBetween(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error)
	PublishedEventsBetween(ctx context.Context, from, to time.Time) ([]model.Event, error)
	PublishedTripsOverlapping(ctx context.Context, from, to time.Time) ([]model.Trip, error)
	ActiveFestivals(ctx context.Context) ([]model.Festival, error)
}

// SunTimesProvider returns sunrise/sunset for a date. It may fail; callers
// treat the result as optional enrichment.
type SunTimesProvider interface {
	SunTimes(ctx context.Context, date time.Time) (model.SunTimes, error)
}

// DayView is one resolved grid cell.
type DayView struct {
	Date       time.Time
	InMonth    bool
	Activities []model.DayActivity
}

// MonthView is a full month grid including leading and trailing days.
type MonthView struct {
	Year      int
	Month     time.Month
	WeekStart time.Weekday
	Days      []DayView
}

// LoaderConfig tunes a MonthLoader. Zero values get defaults.
type LoaderConfig struct {
	WeekStart      time.Weekday
	SunTimeout     time.Duration
	SunConcurrency int
	Metrics        *metrics.Metrics
}

// MonthLoader fetches a view's inputs once, enriches default-status days
// with sun times concurrently, and merges every day.
type MonthLoader struct {
	source  Source
	rule    DefaultStatusRule
	sun     SunTimesProvider
	cfg     LoaderConfig
	metrics *metrics.Metrics
}

// NewMonthLoader builds a loader. sun may be nil, in which case default
// days carry no sun times.
func NewMonthLoader(src Source, rule DefaultStatusRule, sun SunTimesProvider, cfg LoaderConfig) *MonthLoader {
	if cfg.SunTimeout <= 0 {
		cfg.SunTimeout = defaultSunTimeout
	}
	if cfg.SunConcurrency <= 0 {
		cfg.SunConcurrency = defaultSunConcurrency
	}
	return &MonthLoader{
		source:  src,
		rule:    rule,
		sun:     sun,
		cfg:     cfg,
		metrics: cfg.Metrics,
	}
}

// WeekStartFromConfig maps "monday"/"sunday" to a weekday; anything else is Sunday.
func WeekStartFromConfig(s string) time.Weekday {
	if wd, ok := parseWeekday(s); ok && wd == time.Monday {
		return time.Monday
	}
	return time.Sunday
}

// VisibleDays returns the grid cells of a month view: whole weeks starting
// on weekStart, from the week holding the 1st to the week holding the last
// day, padded to at least five rows (35 to 42 cells).
func VisibleDays(year int, month time.Month, weekStart time.Weekday) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := first.AddDate(0, 0, -lead)

	trail := (int(weekStart) + 6 - int(last.Weekday()) + 7) % 7
	end := last.AddDate(0, 0, trail)

	n := model.DaysBetween(start, end) + 1
	if n < 35 {
		n = 35
	}

	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// Month resolves the grid for year/month.
func (l *MonthLoader) Month(ctx context.Context, year int, month time.Month) (MonthView, error) {
	if month < time.January || month > time.December || year < 1 {
		return MonthView{}, fmt.Errorf("%w: %d-%02d", ErrInvalidMonth, year, month)
	}
	begin := time.Now()

	cells := VisibleDays(year, month, l.cfg.WeekStart)
	views, err := l.resolve(ctx, cells)
	if err != nil {
		return MonthView{}, err
	}
	for i := range views {
		views[i].InMonth = views[i].Date.Month() == month
	}

	l.metrics.MonthLoaded(time.Since(begin).Seconds())
	appLog.Debug("month resolved",
		"month", fmt.Sprintf("%d-%02d", year, month),
		"cells", len(views),
		"elapsed", time.Since(begin),
	)

	return MonthView{
		Year:      year,
		Month:     month,
		WeekStart: l.cfg.WeekStart,
		Days:      views,
	}, nil
}

// Range resolves every day in [from, to].
func (l *MonthLoader) Range(ctx context.Context, from, to time.Time) ([]DayView, error) {
	from, to = model.DateOf(from), model.DateOf(to)
	n := model.DaysBetween(from, to) + 1
	if n < 1 || n > maxRangeDays {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidRange, model.DateKey(from), model.DateKey(to))
	}
	days := make([]time.Time, n)
	for i := range days {
		days[i] = from.AddDate(0, 0, i)
	}
	views, err := l.resolve(ctx, days)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].InMonth = true
	}
	return views, nil
}

// Day resolves a single date.
func (l *MonthLoader) Day(ctx context.Context, date time.Time) (DayView, error) {
	views, err := l.Range(ctx, date, date)
	if err != nil {
		return DayView{}, err
	}
	return views[0], nil
}

// resolve loads inputs covering days (which must be ascending and
// contiguous) and merges each day.
func (l *MonthLoader) resolve(ctx context.Context, days []time.Time) ([]DayView, error) {
	from, to := days[0], days[len(days)-1]

	entries, err := l.source.EntriesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load calendar entries: %w", err)
	}
	events, err := l.source.PublishedEventsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	trips, err := l.source.PublishedTripsOverlapping(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	festivals, err := l.source.ActiveFestivals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load festivals: %w", err)
	}

	byDate := make(map[string]*model.CalendarEntry, len(entries))
	for i := range entries {
		byDate[model.DateKey(model.DateOf(entries[i].Date))] = &entries[i]
	}

	needSun := make([]time.Time, 0, len(days))
	for _, d := range days {
		e := byDate[model.DateKey(d)]
		if e != nil && !e.EntryType.Valid() {
			e = nil
		}
		if NeedsDefault(e) {
			needSun = append(needSun, d)
		}
	}
	sun := l.prefetchSunTimes(ctx, needSun)

	merger := Merger{
		Rule: l.rule,
		SunTimes: func(date time.Time) (model.SunTimes, bool) {
			st, ok := sun[model.DateKey(date)]
			return st, ok
		},
	}

	views := make([]DayView, 0, len(days))
	for _, d := range days {
		acts := merger.MergeActivitiesForDate(d, byDate[model.DateKey(d)], events, trips, festivals)
		l.metrics.DayResolved(string(acts[0].Type), acts[0].IsDefault)
		views = append(views, DayView{Date: d, Activities: acts})
	}
	return views, nil
}

// prefetchSunTimes fetches sun times for dates concurrently. Failed or slow
// fetches are dropped; the result holds only successful lookups.
func (l *MonthLoader) prefetchSunTimes(ctx context.Context, dates []time.Time) map[string]model.SunTimes {
	out := make(map[string]model.SunTimes, len(dates))
	if l.sun == nil || len(dates) == 0 {
		return out
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.SunConcurrency)

	for _, d := range dates {
		g.Go(func() error {
			st, err := l.fetchSunTimes(gctx, d)
			l.metrics.SunTimes(err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				appLog.Debug("sun times unavailable", "date", model.DateKey(d), "err", err)
				return nil
			}
			out[model.DateKey(d)] = st
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		appLog.Warn("sun times missing for some days", "failed", failed, "requested", len(dates))
	}
	return out
}

type sunResult struct {
	times model.SunTimes
	err   error
}

// fetchSunTimes bounds a single lookup by SunTimeout even if the provider
// does not honor ctx.
func (l *MonthLoader) fetchSunTimes(ctx context.Context, date time.Time) (model.SunTimes, error) {
	fctx, cancel := context.WithTimeout(ctx, l.cfg.SunTimeout)
	defer cancel()

	ch := make(chan sunResult, 1)
	go func() {
		st, err := l.sun.SunTimes(fctx, date)
		ch <- sunResult{times: st, err: err}
	}()

	select {
	case r := <-ch:
		return r.times, r.err
	case <-fctx.Done():
		return model.SunTimes{}, fctx.Err()
	}
}
