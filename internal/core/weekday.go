package core

import "time"

// Weekday is a day of the week, Monday first.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// weekdayLabels is the fixed display vocabulary, independent of the host locale.
var weekdayLabels = [...]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// Weekdays lists all seven days in display order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// WeekdayOf maps a calendar date to its weekday.
func WeekdayOf(d Date) Weekday {
	return fromTimeWeekday(d.Time.Weekday())
}

func fromTimeWeekday(w time.Weekday) Weekday {
	return Weekday((int(w) + 6) % 7)
}

// Label returns the fixed display name, or "" when w is out of range.
func (w Weekday) Label() string {
	if w < Monday || w > Sunday {
		return ""
	}
	return weekdayLabels[w]
}

func (w Weekday) String() string { return w.Label() }
