package appointments

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func inPersonOn(id, day, clock string, status Status) InPerson {
	return InPerson{Envelope: Envelope{ID: id, Date: date(day), Time: clock, Status: status}}
}

func remoteOn(id, day, clock string, status Status) Remote {
	return Remote{Envelope: Envelope{ID: id, Date: date(day), Time: clock, Status: status}}
}

func ids(list []Appointment) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Common().ID)
	}
	return out
}

func TestUpcomingFutureConfirmed(t *testing.T) {
	today := date("2025-02-20")
	all := []Appointment{inPersonOn("a", "2025-03-01", "10:00", StatusConfirmed)}

	assert.Equal(t, []string{"a"}, ids(Upcoming(all, today)))
	assert.Empty(t, Past(all, today))
}

func TestPastCompletedNotDuplicated(t *testing.T) {
	today := date("2025-02-20")
	all := []Appointment{remoteOn("r", "2025-01-01", "09:00", StatusCompleted)}

	assert.Equal(t, []string{"r"}, ids(Past(all, today)))
	assert.Empty(t, Upcoming(all, today))
}

func TestStatusTakesPrecedenceOverFutureDate(t *testing.T) {
	today := date("2025-02-20")
	all := []Appointment{
		remoteOn("done-early", "2025-03-10", "09:00", StatusCompleted),
		inPersonOn("cancelled", "2025-03-11", "09:00", StatusCancelled),
	}
	assert.Empty(t, Upcoming(all, today))
	assert.ElementsMatch(t, []string{"done-early", "cancelled"}, ids(Past(all, today)))
}

func TestTodayIsUpcoming(t *testing.T) {
	today := date("2025-02-20")
	a := remoteOn("today", "2025-02-20", "08:00", StatusInProgress)
	assert.False(t, IsPast(a, today))
}

func TestPartitionProperty(t *testing.T) {
	today := date("2025-02-20")
	days := []string{"2024-12-31", "2025-02-19", "2025-02-20", "2025-02-21", "2026-01-01"}

	var all []Appointment
	for _, d := range days {
		for _, s := range allStatuses {
			id := d + "/" + string(s)
			all = append(all, remoteOn(id, d, "10:00", s))
			if s != StatusInProgress {
				all = append(all, inPersonOn("p"+id, d, "10:00", s))
			}
		}
	}

	upcoming := map[string]bool{}
	for _, a := range Upcoming(all, today) {
		upcoming[a.Common().ID] = true
	}
	past := map[string]bool{}
	for _, a := range Past(all, today) {
		past[a.Common().ID] = true
	}

	for _, a := range all {
		env := a.Common()
		wantPast := env.Date.Before(today) || env.Status == StatusCompleted || env.Status == StatusCancelled
		assert.Equalf(t, wantPast, past[env.ID], "past membership for %s", env.ID)
		assert.NotEqualf(t, past[env.ID], upcoming[env.ID], "exactly one view for %s", env.ID)
	}
	assert.Equal(t, len(all), len(upcoming)+len(past))
}

func TestOrdering(t *testing.T) {
	today := date("2025-02-20")
	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	later := remoteOn("later", "2025-03-05", "9:00 AM", StatusPending)
	afternoon := inPersonOn("afternoon", "2025-03-01", "2:30 PM", StatusConfirmed)
	morning := inPersonOn("morning", "2025-03-01", "09:15", StatusConfirmed)
	morning.CreatedAt = created
	oldest := remoteOn("oldest", "2024-11-01", "10:00", StatusCompleted)
	recent := inPersonOn("recent", "2025-02-10", "10:00", StatusConfirmed)

	all := []Appointment{later, afternoon, morning, oldest, recent}
	assert.Equal(t, []string{"morning", "afternoon", "later"}, ids(Upcoming(all, today)))
	assert.Equal(t, []string{"recent", "oldest"}, ids(Past(all, today)))
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"14:30", 14*time.Hour + 30*time.Minute, true},
		{"2:30 PM", 14*time.Hour + 30*time.Minute, true},
		{"2:30PM", 14*time.Hour + 30*time.Minute, true},
		{"09:05 AM", 9*time.Hour + 5*time.Minute, true},
		{"9:05 am", 9*time.Hour + 5*time.Minute, true},
		{"morning", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseClock(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartInstant(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, ok := startInstant(date("2025-03-01"), "2:30 PM", loc)
	assert.True(t, ok)
	assert.True(t, got.Equal(time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)))

	midnight, ok := startInstant(date("2025-03-01"), "after lunch", time.UTC)
	assert.False(t, ok)
	assert.True(t, midnight.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}
