package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "trustcal/internal/log"
	"trustcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// RangeStart and RangeEnd are inclusive civil dates.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single series; zero means the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one dated instance of a feed event.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Date        time.Time
}

// InstanceKey identifies an occurrence across syncs.
func (o Occurrence) InstanceKey() string {
	return o.UID + "/" + model.DateKey(o.Date)
}

// ExpandOccurrences turns events into dated instances within the range.
// RRULE series honor EXDATE, and RECURRENCE-ID overrides move or retitle
// the instance they replace. Cancelled instances are dropped.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: range end before range start")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			bases[ev.UID] = append(bases[ev.UID], ev)
		}
	}

	out := make([]Occurrence, 0)
	for uid, evs := range bases {
		for _, ev := range evs {
			occ, capped := expandEvent(ev, overrides[uid], cfg)
			if capped {
				appLog.Warn("expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
			out = append(out, occ...)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if ev.Cancelled || !inRange(ev.Start, cfg) {
			return nil, false
		}
		return []Occurrence{occurrenceOf(ev, ev.Start)}, false
	}

	starts, err := seriesStarts(ev, cfg)
	if err != nil {
		appLog.Warn("expand: bad RRULE", "uid", ev.UID, "rrule", ev.RawRRule, "err", err)
		return nil, false
	}

	capped := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		capped = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, st := range starts {
		inst := ev
		if o, ok := findOverride(overrides, st); ok {
			inst = o
			st = o.Start
		}
		if inst.Cancelled || !inRange(st, cfg) {
			continue
		}
		out = append(out, occurrenceOf(inst, st))
	}
	return out, capped
}

// seriesStarts lists RRULE instance starts whose civil date is in range.
func seriesStarts(ev ParsedEvent, cfg ExpandConfig) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	from := model.DateOf(cfg.RangeStart)
	to := model.DateOf(cfg.RangeEnd)
	lo := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	hi := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, loc)
	return set.Between(lo, hi, true), nil
}

// IsYearly reports whether rule is a plain FREQ=YEARLY series, which maps
// onto a recurring festival.
func IsYearly(rule string) bool {
	if rule == "" {
		return false
	}
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return false
	}
	if opt.Freq != rrule.YEARLY {
		return false
	}
	// Anything narrowing or bounding the series is not a plain anniversary.
	return opt.Interval <= 1 && opt.Count == 0 && opt.Until.IsZero() &&
		len(opt.Bymonth) == 0 && len(opt.Bymonthday) == 0 &&
		len(opt.Byweekday) == 0 && len(opt.Byyearday) == 0 &&
		len(opt.Bysetpos) == 0 && len(opt.Byweekno) == 0
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.Equal(start) || (ov.AllDay && model.SameDate(*ov.Recurrence, start)) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func occurrenceOf(ev ParsedEvent, start time.Time) Occurrence {
	return Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Date:        model.DateOf(start),
	}
}

func inRange(t time.Time, cfg ExpandConfig) bool {
	d := model.DateOf(t)
	return !d.Before(model.DateOf(cfg.RangeStart)) && !d.After(model.DateOf(cfg.RangeEnd))
}
