package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"trustcal/internal/config"
	"trustcal/internal/model"
)

// DefaultStatusRule decides the fast status of a date that has no stored
// override. Implementations must be pure and total.
type DefaultStatusRule interface {
	Status(date time.Time) model.Status
}

// RuleFunc adapts a plain function to DefaultStatusRule.
type RuleFunc func(date time.Time) model.Status

func (f RuleFunc) Status(date time.Time) model.Status { return f(date) }

// AlternatingRule gives Anchor the AnchorStatus and flips status every day
// before and after it.
type AlternatingRule struct {
	Anchor       time.Time
	AnchorStatus model.Status
}

func (r AlternatingRule) Status(date time.Time) model.Status {
	n := model.DaysBetween(r.Anchor, date)
	if n%2 == 0 {
		return r.AnchorStatus
	}
	return other(r.AnchorStatus)
}

// WeekdayRule marks the listed weekdays upass and all other days biyashna.
type WeekdayRule struct {
	Upass map[time.Weekday]bool
}

func (r WeekdayRule) Status(date time.Time) model.Status {
	if r.Upass[model.DateOf(date).Weekday()] {
		return model.StatusUpass
	}
	return model.StatusBiyashna
}

// RRuleRule marks days on which an RFC 5545 recurrence fires as upass.
type RRuleRule struct {
	rule *rrule.RRule
}

// NewRRuleRule parses expr (e.g. "FREQ=WEEKLY;BYDAY=MO,TH") anchored at dtstart.
func NewRRuleRule(expr string, dtstart time.Time) (*RRuleRule, error) {
	r, err := rrule.StrToRRule(expr)
	if err != nil {
		return nil, fmt.Errorf("parse rrule %q: %w", expr, err)
	}
	r.DTStart(model.DateOf(dtstart))
	return &RRuleRule{rule: r}, nil
}

func (r *RRuleRule) Status(date time.Time) model.Status {
	start := model.DateOf(date)
	end := start.Add(24*time.Hour - time.Nanosecond)
	if len(r.rule.Between(start, end, true)) > 0 {
		return model.StatusUpass
	}
	return model.StatusBiyashna
}

func other(s model.Status) model.Status {
	if s == model.StatusUpass {
		return model.StatusBiyashna
	}
	return model.StatusUpass
}

// RuleFromConfig builds the configured default rule.
func RuleFromConfig(c config.DefaultRuleConfig) (DefaultStatusRule, error) {
	anchor := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if c.Anchor != "" {
		a, err := model.ParseDate(c.Anchor)
		if err != nil {
			return nil, fmt.Errorf("default_rule.anchor: %w", err)
		}
		anchor = a
	}

	switch strings.ToLower(c.Kind) {
	case "alternating":
		status := model.StatusUpass
		if c.AnchorStatus != "" {
			st, ok := model.ParseStatus(c.AnchorStatus)
			if !ok {
				return nil, fmt.Errorf("default_rule.anchor_status: unknown status %q", c.AnchorStatus)
			}
			status = st
		}
		return AlternatingRule{Anchor: anchor, AnchorStatus: status}, nil

	case "weekday":
		if len(c.UpassWeekdays) == 0 {
			return nil, fmt.Errorf("default_rule.upass_weekdays: at least one weekday is required")
		}
		days := make(map[time.Weekday]bool, len(c.UpassWeekdays))
		for _, name := range c.UpassWeekdays {
			wd, ok := parseWeekday(name)
			if !ok {
				return nil, fmt.Errorf("default_rule.upass_weekdays: unknown weekday %q", name)
			}
			days[wd] = true
		}
		return WeekdayRule{Upass: days}, nil

	case "rrule":
		if c.RRule == "" {
			return nil, fmt.Errorf("default_rule.rrule: expression is required")
		}
		return NewRRuleRule(c.RRule, anchor)

	default:
		return nil, fmt.Errorf("default_rule.kind: unknown kind %q", c.Kind)
	}
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			return wd, true
		}
	}
	return 0, false
}
