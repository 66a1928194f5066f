// Package summary buckets activities into this/last week and this/last month
// distance totals per activity type.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshdurbin/strava-summary/internal/strava"
)

// Settings controls how windows are computed. It is passed explicitly to
// Aggregate; there is no package-level state.
type Settings struct {
	// WeekStart is time.Monday or time.Sunday
	WeekStart time.Weekday
	// Location decides which calendar day "now" falls on. Nil means time.Local.
	Location *time.Location
}

// DefaultSettings starts weeks on Monday and uses the local time zone
func DefaultSettings() Settings {
	return Settings{
		WeekStart: time.Monday,
		Location:  time.Local,
	}
}

// ParseWeekStart accepts "monday" or "sunday" in any case
func ParseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "mon":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return 0, fmt.Errorf("invalid week start %q: acceptable values are sunday and monday", s)
	}
}

// Buckets holds summed distances in meters for one activity type
type Buckets struct {
	CurrentWeek   float64 `json:"current_week"`
	PreviousWeek  float64 `json:"previous_week"`
	CurrentMonth  float64 `json:"current_month"`
	PreviousMonth float64 `json:"previous_month"`
}

// Windows holds the first calendar day of each reference window. Days are
// wall-clock dates tagged as UTC, matching how Strava reports start_date_local.
type Windows struct {
	CurrentWeek   time.Time `json:"current_week"`
	PreviousWeek  time.Time `json:"previous_week"`
	CurrentMonth  time.Time `json:"current_month"`
	PreviousMonth time.Time `json:"previous_month"`
}

// Summary is the aggregation result. Totals only holds types that had at least
// one activity; use Get to read a type with zero defaults.
type Summary struct {
	GeneratedAt time.Time                       `json:"generated_at"`
	WeekStart   time.Weekday                    `json:"-"`
	Windows     Windows                         `json:"windows"`
	Totals      map[strava.ActivityType]Buckets `json:"totals"`
}

// Get returns the buckets for a type, all zero when the type had no activities
func (s *Summary) Get(activityType strava.ActivityType) Buckets {
	if s == nil {
		return Buckets{}
	}
	return s.Totals[activityType]
}

// MaxZoneOffset is the largest distance of any local wall clock ahead of UTC
const MaxZoneOffset = 14 * time.Hour

// EpochCutoff is the UTC instant to fetch activities after. It is the start of
// the previous month window, pulled back by MaxZoneOffset so an activity whose
// local start falls on that day is requested whatever zone it was recorded in.
// Activities older than this can fall in none of the windows.
func EpochCutoff(now time.Time, settings Settings) time.Time {
	return NewWindows(now, settings).PreviousMonth.Add(-MaxZoneOffset).UTC()
}

// NewWindows computes the reference windows for now
func NewWindows(now time.Time, settings Settings) Windows {
	loc := settings.Location
	if loc == nil {
		loc = time.Local
	}

	today := wallDate(now.In(loc))
	currentWeek := StartOfWeek(today, settings.WeekStart)
	currentMonth := StartOfMonth(today)

	return Windows{
		CurrentWeek:   currentWeek,
		PreviousWeek:  currentWeek.AddDate(0, 0, -7),
		CurrentMonth:  currentMonth,
		PreviousMonth: currentMonth.AddDate(0, -1, 0),
	}
}

// StartOfWeek returns the first day of the week containing t
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := wallDate(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first day of the month containing t
func StartOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// wallDate keeps the calendar date of t as seen in its own location
func wallDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Aggregate sums activity distances per type into the four windows. Weekly and
// monthly accounting are independent; an activity outside both weekly windows
// still counts toward its month and vice versa. Types without activities are
// absent from Totals.
func Aggregate(activities []strava.Activity, now time.Time, settings Settings) *Summary {
	windows := NewWindows(now, settings)
	totals := make(map[strava.ActivityType]Buckets)

	for _, a := range activities {
		activityType := strava.ActivityType(a.Type)
		b := totals[activityType]

		week := StartOfWeek(a.StartDateLocal, settings.WeekStart)
		if week.Equal(windows.CurrentWeek) {
			b.CurrentWeek += a.Distance
		} else if week.Equal(windows.PreviousWeek) {
			b.PreviousWeek += a.Distance
		}

		month := StartOfMonth(a.StartDateLocal)
		if month.Equal(windows.CurrentMonth) {
			b.CurrentMonth += a.Distance
		} else if month.Equal(windows.PreviousMonth) {
			b.PreviousMonth += a.Distance
		}

		totals[activityType] = b
	}

	return &Summary{
		GeneratedAt: now,
		WeekStart:   settings.WeekStart,
		Windows:     windows,
		Totals:      totals,
	}
}
