package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"trustcal/internal/calendar"
	"trustcal/internal/model"
)

const productID = "-//trustcal//calendar//EN"

// ExportOptions names the published calendar.
type ExportOptions struct {
	Name string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// Export renders resolved days as an iCalendar document with one all-day
// VEVENT per activity. UIDs depend only on date, type and position, so a
// re-export replaces rather than duplicates events in subscribers.
func Export(days []calendar.DayView, opts ExportOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, d := range days {
		day := model.DateOf(d.Date)
		for i, a := range d.Activities {
			uid := fmt.Sprintf("%s-%s-%d@trustcal", day.Format("20060102"), a.Type, i)
			ev := cal.AddEvent(uid)
			ev.SetDtStampTime(now.UTC())
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			ev.SetSummary(summaryOf(a))
			if desc := descriptionOf(a); desc != "" {
				ev.SetDescription(desc)
			}
			ev.SetProperty(ical.ComponentPropertyCategories, string(a.Type))
			ev.SetProperty(ical.ComponentProperty("COLOR"), calendar.ActivityColor(a.Type))
		}
	}
	return cal.Serialize()
}

func summaryOf(a model.DayActivity) string {
	if a.IsDefault {
		return a.Title + " (default)"
	}
	return a.Title
}

func descriptionOf(a model.DayActivity) string {
	var parts []string
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	if a.Reason != "" {
		parts = append(parts, "Reason: "+a.Reason)
	}
	if a.SunTimes != nil {
		parts = append(parts, fmt.Sprintf("Sunrise %s, sunset %s", a.SunTimes.Sunrise, a.SunTimes.Sunset))
	}
	return strings.Join(parts, "\n")
}
