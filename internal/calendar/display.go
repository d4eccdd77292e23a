package calendar

import "trustcal/internal/model"

const (
	fallbackColor = "gray"
	fallbackIcon  = "circle"
)

var activityColors = map[model.ActivityType]string{
	model.ActivityUpass:       "orange",
	model.ActivityBiyashna:    "purple",
	model.ActivityHoliday:     "red",
	model.ActivityEvent:       "blue",
	model.ActivityTrip:        "green",
	model.ActivityFestival:    "yellow",
	model.ActivityCustomEvent: "teal",
}

var activityIcons = map[model.ActivityType]string{
	model.ActivityUpass:       "sun",
	model.ActivityBiyashna:    "moon",
	model.ActivityHoliday:     "calendar-x",
	model.ActivityEvent:       "calendar",
	model.ActivityTrip:        "map-pin",
	model.ActivityFestival:    "star",
	model.ActivityCustomEvent: "sparkles",
}

// ActivityColor maps an activity type to the grid's color token.
func ActivityColor(t model.ActivityType) string {
	if c, ok := activityColors[t]; ok {
		return c
	}
	return fallbackColor
}

// ActivityIcon maps an activity type to the grid's icon token.
func ActivityIcon(t model.ActivityType) string {
	if i, ok := activityIcons[t]; ok {
		return i
	}
	return fallbackIcon
}
