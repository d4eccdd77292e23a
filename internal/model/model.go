package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the canonical civil-date format used in keys, URLs and JSON.
const DateLayout = "2006-01-02"

// Status is the liturgical fast designation of a day.
type Status string

const (
	StatusUpass    Status = "upass"
	StatusBiyashna Status = "biyashna"
)

func (s Status) Valid() bool {
	return s == StatusUpass || s == StatusBiyashna
}

// ActivityType maps a fast status onto the matching activity type.
func (s Status) ActivityType() ActivityType {
	if s == StatusBiyashna {
		return ActivityBiyashna
	}
	return ActivityUpass
}

// ParseStatus accepts exactly "upass" or "biyashna".
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// EntryType is the kind of a stored calendar entry.
type EntryType string

const (
	EntryUpass       EntryType = "upass"
	EntryBiyashna    EntryType = "biyashna"
	EntryHoliday     EntryType = "holiday"
	EntryCustomEvent EntryType = "custom_event"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryUpass, EntryBiyashna, EntryHoliday, EntryCustomEvent:
		return true
	}
	return false
}

// FastStatus reports the status an upass/biyashna entry pins its date to.
func (t EntryType) FastStatus() (Status, bool) {
	switch t {
	case EntryUpass:
		return StatusUpass, true
	case EntryBiyashna:
		return StatusBiyashna, true
	}
	return "", false
}

// ActivityType is the kind of a derived day activity.
type ActivityType string

const (
	ActivityUpass       ActivityType = "upass"
	ActivityBiyashna    ActivityType = "biyashna"
	ActivityHoliday     ActivityType = "holiday"
	ActivityEvent       ActivityType = "event"
	ActivityTrip        ActivityType = "trip"
	ActivityFestival    ActivityType = "festival"
	ActivityCustomEvent ActivityType = "custom_event"
)

// ActivityTypes lists every activity type in rendering order.
func ActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityUpass,
		ActivityBiyashna,
		ActivityHoliday,
		ActivityCustomEvent,
		ActivityEvent,
		ActivityTrip,
		ActivityFestival,
	}
}

// IsPrimary reports whether the type can lead a day's activity list.
func (t ActivityType) IsPrimary() bool {
	return t == ActivityUpass || t == ActivityBiyashna || t == ActivityHoliday
}

// SunTimes holds local sunrise/sunset clock times as "HH:MM".
type SunTimes struct {
	Sunrise string
	Sunset  string
}

// CalendarEntry is the single stored record for one calendar date: a manual
// fast-status override, a holiday or a custom event.
type CalendarEntry struct {
	ID   uint      `gorm:"primaryKey"`
	Date time.Time `gorm:"type:date;uniqueIndex;not null"`

	EntryType EntryType `gorm:"type:varchar(32);not null"`

	// IsManualOverride marks the date as admin-confirmed. Such rows are never
	// recalculated from the default rule.
	IsManualOverride bool `gorm:"not null"`

	Title       string `gorm:"type:varchar(255)"`
	Description string `gorm:"type:text"`
	Reason      string `gorm:"type:text"`

	// Cached at creation time so renders need not recompute them.
	SunriseTime string `gorm:"type:varchar(5)"`
	SunsetTime  string `gorm:"type:varchar(5)"`

	CreatedBy uuid.UUID `gorm:"type:varchar(36)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CalendarEntry) TableName() string { return "calendar_entries" }

// CachedSunTimes returns the cached sun times, if both are present.
func (e CalendarEntry) CachedSunTimes() *SunTimes {
	if e.SunriseTime == "" || e.SunsetTime == "" {
		return nil
	}
	return &SunTimes{Sunrise: e.SunriseTime, Sunset: e.SunsetTime}
}

// Festival is a named festival date, optionally repeating every year.
type Festival struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Date        time.Time `gorm:"type:date;not null"`
	Description string    `gorm:"type:text"`
	IsRecurring bool      `gorm:"not null"`
	IsActive    bool      `gorm:"not null;index"`

	// ExternalUID is the iCalendar UID for festivals imported from a feed.
	ExternalUID *string `gorm:"type:varchar(255);uniqueIndex"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Festival) TableName() string { return "festivals" }

// OccursOn reports whether the festival falls on the civil date of day.
//
// Recurring festivals match on month and day from their stored year onward.
// A Feb 29 festival therefore only fires in leap years.
func (f Festival) OccursOn(day time.Time) bool {
	if !f.IsActive {
		return false
	}
	if !f.IsRecurring {
		return SameDate(f.Date, day)
	}
	if day.Year() < f.Date.Year() {
		return false
	}
	return day.Month() == f.Date.Month() && day.Day() == f.Date.Day()
}

// Event is a published trust event with a single representative date.
type Event struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Date        time.Time `gorm:"type:date;not null;index"`
	IsPublished bool      `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Event) TableName() string { return "events" }

// Trip is a published trip spanning an inclusive date range.
type Trip struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	StartDate   time.Time `gorm:"type:date;not null;index"`
	EndDate     time.Time `gorm:"type:date;not null;index"`
	IsPublished bool      `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Trip) TableName() string { return "trips" }

// Covers reports whether day lies within [StartDate, EndDate]. A zero or
// inverted end date is treated as a single-day trip.
func (t Trip) Covers(day time.Time) bool {
	start := DateOf(t.StartDate)
	end := DateOf(t.EndDate)
	if t.EndDate.IsZero() || end.Before(start) {
		end = start
	}
	d := DateOf(day)
	return !d.Before(start) && !d.After(end)
}

// DayActivity is one renderable item of a day; it is derived, never stored.
type DayActivity struct {
	Type        ActivityType
	Title       string
	Description string
	Reason      string

	// IsDefault is true only for a fast status computed by the default rule
	// with no stored entry behind it.
	IsDefault bool

	// SunTimes is set only on upass/biyashna activities.
	SunTimes *SunTimes
}
