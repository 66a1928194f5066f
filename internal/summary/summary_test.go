package summary

import (
	"math/rand"
	"testing"
	"time"

	"github.com/joshdurbin/strava-summary/internal/strava"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func activity(activityType strava.ActivityType, distance float64, start time.Time) strava.Activity {
	return strava.Activity{Type: string(activityType), Distance: distance, StartDateLocal: start}
}

func TestParseWeekStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    time.Weekday
		wantErr bool
	}{
		{input: "monday", want: time.Monday},
		{input: "Monday", want: time.Monday},
		{input: "SUNDAY", want: time.Sunday},
		{input: "sun", want: time.Sunday},
		{input: "tuesday", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseWeekStart(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseWeekStart(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWeekStart(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseWeekStart(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEpochCutoff(t *testing.T) {
	t.Parallel()

	pdt := time.FixedZone("PDT", -7*3600)
	cest := time.FixedZone("CEST", 2*3600)

	tests := []struct {
		name     string
		now      time.Time
		settings Settings
		want     time.Time
	}{
		{
			name:     "mid month",
			now:      time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Monday, Location: time.UTC},
			want:     day(2024, 4, 1).Add(-MaxZoneOffset),
		},
		{
			name:     "january rolls back a year",
			now:      time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Monday, Location: time.UTC},
			want:     day(2023, 12, 1).Add(-MaxZoneOffset),
		},
		{
			name:     "last local evening of the month west of UTC",
			now:      time.Date(2024, 4, 30, 20, 0, 0, 0, pdt),
			settings: Settings{WeekStart: time.Monday, Location: pdt},
			want:     day(2024, 3, 1).Add(-MaxZoneOffset),
		},
		{
			name:     "first local hour of the month east of UTC",
			now:      time.Date(2024, 4, 1, 1, 0, 0, 0, cest),
			settings: Settings{WeekStart: time.Monday, Location: cest},
			want:     day(2024, 3, 1).Add(-MaxZoneOffset),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EpochCutoff(tt.now, tt.settings)
			if !got.Equal(tt.want) {
				t.Errorf("EpochCutoff(%v) = %v, want %v", tt.now, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("expected UTC cutoff, got %v", got.Location())
			}
			if prev := NewWindows(tt.now, tt.settings).PreviousMonth; got.After(prev) {
				t.Errorf("cutoff %v is after the previous month window %v", got, prev)
			}
		})
	}
}

func TestNewWindows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		now      time.Time
		settings Settings
		want     Windows
	}{
		{
			name:     "monday start mid week",
			now:      time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Monday, Location: time.UTC},
			want: Windows{
				CurrentWeek:   day(2024, 5, 13),
				PreviousWeek:  day(2024, 5, 6),
				CurrentMonth:  day(2024, 5, 1),
				PreviousMonth: day(2024, 4, 1),
			},
		},
		{
			name:     "sunday start",
			now:      time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Sunday, Location: time.UTC},
			want: Windows{
				CurrentWeek:   day(2024, 5, 12),
				PreviousWeek:  day(2024, 5, 5),
				CurrentMonth:  day(2024, 5, 1),
				PreviousMonth: day(2024, 4, 1),
			},
		},
		{
			name:     "on the week start day itself",
			now:      time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Monday, Location: time.UTC},
			want: Windows{
				CurrentWeek:   day(2024, 5, 13),
				PreviousWeek:  day(2024, 5, 6),
				CurrentMonth:  day(2024, 5, 1),
				PreviousMonth: day(2024, 4, 1),
			},
		},
		{
			name:     "end of month does not skip february",
			now:      time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Monday, Location: time.UTC},
			want: Windows{
				CurrentWeek:   day(2024, 3, 25),
				PreviousWeek:  day(2024, 3, 18),
				CurrentMonth:  day(2024, 3, 1),
				PreviousMonth: day(2024, 2, 1),
			},
		},
		{
			name:     "local zone decides the calendar day",
			now:      time.Date(2024, 5, 13, 2, 0, 0, 0, time.UTC),
			settings: Settings{WeekStart: time.Monday, Location: time.FixedZone("PDT", -7*3600)},
			want: Windows{
				CurrentWeek:   day(2024, 5, 6),
				PreviousWeek:  day(2024, 4, 29),
				CurrentMonth:  day(2024, 5, 1),
				PreviousMonth: day(2024, 4, 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewWindows(tt.now, tt.settings)
			if !got.CurrentWeek.Equal(tt.want.CurrentWeek) ||
				!got.PreviousWeek.Equal(tt.want.PreviousWeek) ||
				!got.CurrentMonth.Equal(tt.want.CurrentMonth) ||
				!got.PreviousMonth.Equal(tt.want.PreviousMonth) {
				t.Errorf("NewWindows() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // Wednesday
	activities := []strava.Activity{
		activity(strava.Run, 5000, time.Date(2024, 5, 14, 7, 30, 0, 0, time.UTC)),  // this week
		activity(strava.Run, 3000, time.Date(2024, 5, 7, 18, 0, 0, 0, time.UTC)),   // last week
		activity(strava.Run, 2000, time.Date(2024, 4, 30, 6, 0, 0, 0, time.UTC)),   // last month only
		activity(strava.Run, 1000, time.Date(2024, 3, 31, 6, 0, 0, 0, time.UTC)),   // no window
		activity(strava.Ride, 10000, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)), // this week, first minute
		activity(strava.Ride, 4000, time.Date(2024, 5, 12, 23, 59, 0, 0, time.UTC)),
	}

	t.Run("monday start", func(t *testing.T) {
		t.Parallel()

		got := Aggregate(activities, now, Settings{WeekStart: time.Monday, Location: time.UTC})

		wantRun := Buckets{CurrentWeek: 5000, PreviousWeek: 3000, CurrentMonth: 8000, PreviousMonth: 2000}
		if run := got.Get(strava.Run); run != wantRun {
			t.Errorf("Run buckets = %+v, want %+v", run, wantRun)
		}

		// Sunday May 12 belongs to the previous Monday-started week
		wantRide := Buckets{CurrentWeek: 10000, PreviousWeek: 4000, CurrentMonth: 14000}
		if ride := got.Get(strava.Ride); ride != wantRide {
			t.Errorf("Ride buckets = %+v, want %+v", ride, wantRide)
		}
	})

	t.Run("sunday start", func(t *testing.T) {
		t.Parallel()

		got := Aggregate(activities, now, Settings{WeekStart: time.Sunday, Location: time.UTC})

		wantRide := Buckets{CurrentWeek: 14000, CurrentMonth: 14000}
		if ride := got.Get(strava.Ride); ride != wantRide {
			t.Errorf("Ride buckets = %+v, want %+v", ride, wantRide)
		}
	})
}

func TestAggregateAcrossYearBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) // Friday
	activities := []strava.Activity{
		activity(strava.Run, 4000, time.Date(2025, 12, 30, 7, 0, 0, 0, time.UTC)), // same week, last year
		activity(strava.Run, 6000, time.Date(2025, 12, 23, 7, 0, 0, 0, time.UTC)), // previous week
		activity(strava.Run, 1500, time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)),
	}

	got := Aggregate(activities, now, Settings{WeekStart: time.Monday, Location: time.UTC})

	want := Buckets{CurrentWeek: 5500, PreviousWeek: 6000, CurrentMonth: 1500, PreviousMonth: 10000}
	if run := got.Get(strava.Run); run != want {
		t.Errorf("Run buckets = %+v, want %+v", run, want)
	}
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	got := Aggregate(nil, time.Now(), DefaultSettings())

	if len(got.Totals) != 0 {
		t.Errorf("expected empty totals, got %+v", got.Totals)
	}
	if run := got.Get(strava.Run); run != (Buckets{}) {
		t.Errorf("expected zero buckets for absent type, got %+v", run)
	}

	var nilSummary *Summary
	if ride := nilSummary.Get(strava.Ride); ride != (Buckets{}) {
		t.Errorf("expected zero buckets from nil summary, got %+v", ride)
	}
}

func TestAggregateOnlyOutsideWindowsKeepsTypeAtZero(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	got := Aggregate([]strava.Activity{
		activity(strava.Ride, 9000, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)),
	}, now, Settings{WeekStart: time.Monday, Location: time.UTC})

	ride, ok := got.Totals[strava.Ride]
	if !ok {
		t.Fatal("expected Ride to be present once it had an activity")
	}
	if ride != (Buckets{}) {
		t.Errorf("expected all zero buckets, got %+v", ride)
	}
}

// TestAggregateMatchesWindowSums checks bucket sums against a direct range scan
// over randomly placed activities.
func TestAggregateMatchesWindowSums(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	now := time.Date(2024, 8, 7, 15, 0, 0, 0, time.UTC)

	for _, weekStart := range []time.Weekday{time.Monday, time.Sunday} {
		settings := Settings{WeekStart: weekStart, Location: time.UTC}
		windows := NewWindows(now, settings)

		var activities []strava.Activity
		for i := 0; i < 500; i++ {
			activityType := strava.Run
			if rng.Intn(2) == 0 {
				activityType = strava.Ride
			}
			start := now.Add(-time.Duration(rng.Int63n(int64(75 * 24 * time.Hour))))
			activities = append(activities, activity(activityType, float64(rng.Intn(50000)), start))
		}

		in := func(t, from, to time.Time) bool {
			return !t.Before(from) && t.Before(to)
		}

		want := map[strava.ActivityType]*Buckets{strava.Run: {}, strava.Ride: {}}
		for _, a := range activities {
			b := want[strava.ActivityType(a.Type)]
			switch {
			case in(a.StartDateLocal, windows.CurrentWeek, windows.CurrentWeek.AddDate(0, 0, 7)):
				b.CurrentWeek += a.Distance
			case in(a.StartDateLocal, windows.PreviousWeek, windows.CurrentWeek):
				b.PreviousWeek += a.Distance
			}
			switch {
			case in(a.StartDateLocal, windows.CurrentMonth, windows.CurrentMonth.AddDate(0, 1, 0)):
				b.CurrentMonth += a.Distance
			case in(a.StartDateLocal, windows.PreviousMonth, windows.CurrentMonth):
				b.PreviousMonth += a.Distance
			}
		}

		got := Aggregate(activities, now, settings)
		for activityType, w := range want {
			if g := got.Get(activityType); g != *w {
				t.Errorf("week start %v, %s: got %+v, want %+v", weekStart, activityType, g, *w)
			}
		}
	}
}
