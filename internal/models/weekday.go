package models

import "strings"

// Weekday is a day tag stored on time slots.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// AllWeekdays is the full week used by the daily grid.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// SchoolWeekdays is the default set filled by the timetable builder.
var SchoolWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Index returns the position of the day in the week (Monday = 0) or -1.
func (w Weekday) Index() int {
	for i, d := range AllWeekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// Valid reports whether w is a known weekday.
func (w Weekday) Valid() bool { return w.Index() >= 0 }

// ParseWeekday matches a weekday name case-insensitively, accepting three letter abbreviations.
func ParseWeekday(raw string) (Weekday, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	for _, d := range AllWeekdays {
		name := strings.ToLower(string(d))
		if raw == name || (len(raw) == 3 && strings.HasPrefix(name, raw)) {
			return d, true
		}
	}
	return "", false
}
