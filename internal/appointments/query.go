package appointments

import (
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// IsPast reports whether a belongs to the past view: its date has elapsed or
// its status is terminal. Status wins over date, so a COMPLETED visit dated
// tomorrow is past and a CONFIRMED visit dated yesterday is past too.
// Every appointment that is not past is upcoming.
func IsPast(a Appointment, today civil.Date) bool {
	env := a.Common()
	return env.Date.Before(today) || env.Status.Terminal()
}

// Upcoming returns the appointments that are not past, earliest first.
func Upcoming(all []Appointment, today civil.Date) []Appointment {
	out := make([]Appointment, 0, len(all))
	for _, a := range all {
		if !IsPast(a, today) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, compareSchedule)
	return out
}

// Past returns the past appointments, most recent first.
func Past(all []Appointment, today civil.Date) []Appointment {
	out := make([]Appointment, 0, len(all))
	for _, a := range all {
		if IsPast(a, today) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(x, y Appointment) int {
		return compareSchedule(y, x)
	})
	return out
}

// compareSchedule orders by date, then time of day, then creation.
func compareSchedule(x, y Appointment) int {
	ex, ey := x.Common(), y.Common()
	switch {
	case ex.Date.Before(ey.Date):
		return -1
	case ex.Date.After(ey.Date):
		return 1
	}
	tx, _ := parseClock(ex.Time)
	ty, _ := parseClock(ey.Time)
	if tx != ty {
		if tx < ty {
			return -1
		}
		return 1
	}
	return ex.CreatedAt.Compare(ey.CreatedAt)
}

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM", "03:04 PM", "3:04 pm", "3:04pm", "15:04:05"}

// parseClock turns a display time into its offset from midnight.
func parseClock(display string) (time.Duration, bool) {
	display = strings.TrimSpace(display)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, display); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// startInstant combines a calendar date and display time in loc. Unparsable
// times resolve to midnight; ok reports whether the time was understood.
func startInstant(date civil.Date, display string, loc *time.Location) (time.Time, bool) {
	offset, ok := parseClock(display)
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	return time.Date(date.Year, date.Month, date.Day, h, m, 0, 0, loc), ok
}
