package calendar

import (
	"time"

	"trustcal/internal/model"
)

// SunLookup returns already-fetched sun times for a date. It must not block.
type SunLookup func(date time.Time) (model.SunTimes, bool)

// Merger resolves the ordered activity list of one calendar date.
//
// It is pure given its inputs: Rule is only consulted when no stored entry
// pins the date's primary status, and SunTimes is only consulted for such
// computed defaults. Sun times for stored overrides come from the entry's
// cached columns.
type Merger struct {
	Rule     DefaultStatusRule
	SunTimes SunLookup
}

// MergeActivitiesForDate returns the activities of date in the fixed order
// primary status (or holiday), custom event, events, trips, festivals.
// The result is never empty and always starts with a holiday, upass or
// biyashna activity. entry may be nil; entries with an unknown type are
// treated as absent.
func (m Merger) MergeActivitiesForDate(
	date time.Time,
	entry *model.CalendarEntry,
	events []model.Event,
	trips []model.Trip,
	festivals []model.Festival,
) []model.DayActivity {
	date = model.DateOf(date)
	if entry != nil && !entry.EntryType.Valid() {
		entry = nil
	}

	out := make([]model.DayActivity, 0, 1+len(events))
	out = append(out, m.primary(date, entry))

	if entry != nil && entry.EntryType == model.EntryCustomEvent {
		out = append(out, model.DayActivity{
			Type:        model.ActivityCustomEvent,
			Title:       titleOr(entry.Title, "Custom event"),
			Description: entry.Description,
			Reason:      entry.Reason,
		})
	}

	for _, ev := range events {
		if !ev.IsPublished || !model.SameDate(ev.Date, date) {
			continue
		}
		out = append(out, model.DayActivity{
			Type:        model.ActivityEvent,
			Title:       ev.Title,
			Description: ev.Description,
		})
	}

	for _, tr := range trips {
		if !tr.IsPublished || !tr.Covers(date) {
			continue
		}
		out = append(out, model.DayActivity{
			Type:        model.ActivityTrip,
			Title:       tr.Title,
			Description: tr.Description,
		})
	}

	for _, f := range festivals {
		if !f.OccursOn(date) {
			continue
		}
		out = append(out, model.DayActivity{
			Type:        model.ActivityFestival,
			Title:       f.Name,
			Description: f.Description,
		})
	}

	return out
}

// NeedsDefault reports whether the primary status of a date with the given
// entry comes from the default rule.
func NeedsDefault(entry *model.CalendarEntry) bool {
	if entry == nil {
		return true
	}
	if entry.EntryType == model.EntryHoliday {
		return false
	}
	_, fast := entry.EntryType.FastStatus()
	return !fast
}

func (m Merger) primary(date time.Time, entry *model.CalendarEntry) model.DayActivity {
	if entry != nil && entry.EntryType == model.EntryHoliday {
		return model.DayActivity{
			Type:        model.ActivityHoliday,
			Title:       titleOr(entry.Title, "Holiday"),
			Description: entry.Description,
			Reason:      entry.Reason,
		}
	}

	if entry != nil {
		if status, ok := entry.EntryType.FastStatus(); ok {
			return model.DayActivity{
				Type:        status.ActivityType(),
				Title:       statusTitle(status),
				Description: entry.Description,
				Reason:      entry.Reason,
				IsDefault:   false,
				SunTimes:    entry.CachedSunTimes(),
			}
		}
	}

	status := model.StatusUpass
	if m.Rule != nil {
		status = m.Rule.Status(date)
	}
	if !status.Valid() {
		status = model.StatusUpass
	}

	act := model.DayActivity{
		Type:      status.ActivityType(),
		Title:     statusTitle(status),
		IsDefault: true,
	}
	if m.SunTimes != nil {
		if st, ok := m.SunTimes(date); ok {
			act.SunTimes = &st
		}
	}
	return act
}

func statusTitle(s model.Status) string {
	if s == model.StatusBiyashna {
		return "Biyashna"
	}
	return "Upass"
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}
