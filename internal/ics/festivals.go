package ics

import (
	"time"

	appLog "trustcal/internal/log"
	"trustcal/internal/model"
)

const defaultFestivalName = "Festival"

// Festivals maps feed events onto festival rows keyed by ExternalUID.
//
//   - a plain FREQ=YEARLY series becomes one recurring festival
//   - an event without RRULE becomes one one-off festival
//   - any other series is expanded within window into one-off festivals,
//     keyed "<uid>/<date>"
//
// Cancelled events are skipped. Overrides of yearly series cannot be
// represented and are dropped.
func Festivals(events []ParsedEvent, window ExpandConfig) ([]model.Festival, error) {
	out := make([]model.Festival, 0, len(events))
	yearly := make(map[string]bool)
	var series []ParsedEvent

	for _, ev := range events {
		if ev.IsOverride() {
			continue
		}
		switch {
		case ev.Cancelled:
		case IsYearly(ev.RawRRule):
			yearly[ev.UID] = true
			out = append(out, festivalOf(ev.UID, ev.Summary, ev.Description, ev.Start, true))
		case ev.RawRRule == "":
			out = append(out, festivalOf(ev.UID, ev.Summary, ev.Description, ev.Start, false))
		default:
			series = append(series, ev)
		}
	}

	for _, ev := range events {
		if !ev.IsOverride() {
			continue
		}
		if yearly[ev.UID] {
			appLog.Debug("ics override of yearly festival ignored", "uid", ev.UID)
			continue
		}
		series = append(series, ev)
	}

	if len(series) == 0 {
		return out, nil
	}
	occs, err := ExpandOccurrences(onlySeries(series), window)
	if err != nil {
		return nil, err
	}
	for _, o := range occs {
		out = append(out, festivalOf(o.InstanceKey(), o.Summary, o.Description, o.Date, false))
	}
	return out, nil
}

// onlySeries drops overrides whose base is a one-off event; those are
// already represented by the base row.
func onlySeries(evs []ParsedEvent) []ParsedEvent {
	bases := make(map[string]bool)
	for _, ev := range evs {
		if !ev.IsOverride() {
			bases[ev.UID] = true
		}
	}
	out := evs[:0:0]
	for _, ev := range evs {
		if ev.IsOverride() && !bases[ev.UID] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func festivalOf(uid, name, description string, date time.Time, recurring bool) model.Festival {
	if name == "" {
		name = defaultFestivalName
	}
	key := uid
	return model.Festival{
		Name:        name,
		Date:        model.DateOf(date),
		Description: description,
		IsRecurring: recurring,
		IsActive:    true,
		ExternalUID: &key,
	}
}
